package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aman-churiwal/redaction-gateway/internal/models"
	"github.com/aman-churiwal/redaction-gateway/internal/repository"
)

// RecordStore is the slice of the record repository these handlers use.
type RecordStore interface {
	FindByID(ctx context.Context, id int) (*models.Record, error)
	Search(ctx context.Context, q string) ([]models.Record, error)
}

// Serves the protected record store. These endpoints return sensitive
// columns verbatim; the redaction gate in front of them is the only
// thing standing between the store and the client.
type RecordHandler struct {
	records RecordStore
}

func NewRecordHandler(records RecordStore) *RecordHandler {
	return &RecordHandler{records: records}
}

// GET /users/:id
func (h *RecordHandler) GetByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	record, err := h.records.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query_failed"})
		return
	}

	c.JSON(http.StatusOK, record)
}

// GET /search?q=
func (h *RecordHandler) Search(c *gin.Context) {
	q := c.Query("q")

	results, err := h.records.Search(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"q": q, "error": "query_failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"q": q, "results": results})
}

var exportColumns = []string{
	"id", "username", "email", "phone", "address", "dob", "ssn",
	"credit_card_number", "credit_card_cvv", "credit_card_exp", "api_token", "secret_key",
}

// GET /export?q=. Same search, rendered as minimal CSV. Field values
// have newlines and commas squashed instead of quoted.
func (h *RecordHandler) Export(c *gin.Context) {
	q := c.Query("q")

	results, err := h.records.Search(c.Request.Context(), q)
	if err != nil {
		c.Data(http.StatusBadRequest, "text/csv", []byte("status,error\nmessage,query_failed\n"))
		return
	}

	var sb strings.Builder
	sb.WriteString(strings.Join(exportColumns, ","))
	sb.WriteString("\n")

	for _, record := range results {
		fields := []string{
			strconv.Itoa(record.ID),
			record.Username,
			record.Email,
			record.Phone,
			record.Address,
			record.DOB,
			record.SSN,
			record.CreditCardNumber,
			record.CreditCardCVV,
			record.CreditCardExp,
			record.APIToken,
			record.SecretKey,
		}
		for i, field := range fields {
			if i > 0 {
				sb.WriteString(",")
			}
			field = strings.ReplaceAll(field, "\n", " ")
			field = strings.ReplaceAll(field, ",", ";")
			sb.WriteString(field)
		}
		sb.WriteString("\n")
	}

	c.Data(http.StatusOK, "text/csv", []byte(sb.String()))
}
