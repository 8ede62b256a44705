package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/aman-churiwal/redaction-gateway/internal/models"
	"github.com/aman-churiwal/redaction-gateway/internal/storage"
)

var ErrRecordNotFound = errors.New("record not found")

type RecordRepository struct {
	db *storage.Postgres
}

func NewRecordRepository(db *storage.Postgres) *RecordRepository {
	return &RecordRepository{db: db}
}

func (r *RecordRepository) FindByID(ctx context.Context, id int) (*models.Record, error) {
	var record models.Record

	err := r.db.DB.WithContext(ctx).First(&record, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	return &record, nil
}

// Search returns records whose username contains the fragment. The
// fragment is interpolated into the statement as-is.
func (r *RecordRepository) Search(ctx context.Context, q string) ([]models.Record, error) {
	records := make([]models.Record, 0)

	sql := fmt.Sprintf(
		"SELECT id, username, email, phone, address, dob, ssn, "+
			"credit_card_number, credit_card_cvv, credit_card_exp, api_token, secret_key "+
			"FROM users WHERE username LIKE '%%%s%%'", q)

	if err := r.db.DB.WithContext(ctx).Raw(sql).Scan(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

// SecretKeys returns every stored secret_key value in id order.
func (r *RecordRepository) SecretKeys(ctx context.Context) ([]string, error) {
	var keys []string

	err := r.db.DB.WithContext(ctx).
		Model(&models.Record{}).
		Order("id ASC").
		Pluck("secret_key", &keys).Error
	if err != nil {
		return nil, err
	}

	return keys, nil
}
