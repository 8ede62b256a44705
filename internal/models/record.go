package models

// Represents a customer row in the protected record store. Sensitive
// columns are stored in the clear on purpose: the gateway's redaction
// layer, not the store, is what keeps them from leaving the service.
type Record struct {
	ID               int    `gorm:"primaryKey" json:"id"`
	Username         string `gorm:"uniqueIndex;not null" json:"username"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Address          string `json:"address"`
	DOB              string `gorm:"column:dob" json:"dob"`
	SSN              string `gorm:"column:ssn" json:"ssn"`
	CreditCardNumber string `json:"credit_card_number"`
	CreditCardCVV    string `gorm:"column:credit_card_cvv" json:"credit_card_cvv"`
	CreditCardExp    string `json:"credit_card_exp"`
	APIToken         string `gorm:"column:api_token" json:"api_token"`
	SecretKey        string `json:"secret_key"`
}

func (Record) TableName() string {
	return "users"
}
