package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Names under which a submitted key is accepted, besides a "keys" array.
var flagFieldNames = []string{"k1", "k2", "k3", "s1", "s2", "s3", "alice", "bob", "charlie"}

// SecretKeySource yields the stored secret_key column values.
type SecretKeySource interface {
	SecretKeys(ctx context.Context) ([]string, error)
}

// Verifies the three stored secret_key values and returns the flag.
type FlagHandler struct {
	records SecretKeySource
	flag    string
}

func NewFlagHandler(records SecretKeySource, flag string) *FlagHandler {
	return &FlagHandler{records: records, flag: flag}
}

// GET or POST /flag. Submissions are accepted as JSON, form fields, or
// query parameters; exactly three keys must match the three stored
// values, in any order.
func (h *FlagHandler) Submit(c *gin.Context) {
	submitted := extractSubmittedKeys(c)

	stored, err := h.records.SecretKeys(c.Request.Context())
	if err != nil || len(stored) != 3 || h.flag == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_misconfigured"})
		return
	}

	if len(submitted) != 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "need_three_keys"})
		return
	}

	if !sameKeySet(submitted, stored) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mismatch"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"flag": h.flag})
}

func extractSubmittedKeys(c *gin.Context) []string {
	var submitted []string

	if strings.Contains(c.ContentType(), "json") {
		var body struct {
			Keys []string `json:"keys"`

			K1      string `json:"k1"`
			K2      string `json:"k2"`
			K3      string `json:"k3"`
			S1      string `json:"s1"`
			S2      string `json:"s2"`
			S3      string `json:"s3"`
			Alice   string `json:"alice"`
			Bob     string `json:"bob"`
			Charlie string `json:"charlie"`
		}
		if err := c.ShouldBindJSON(&body); err == nil {
			if len(body.Keys) > 0 {
				for _, key := range body.Keys {
					if key = strings.TrimSpace(key); key != "" {
						submitted = append(submitted, key)
					}
				}
			} else {
				for _, key := range []string{body.K1, body.K2, body.K3, body.S1, body.S2, body.S3, body.Alice, body.Bob, body.Charlie} {
					if key = strings.TrimSpace(key); key != "" {
						submitted = append(submitted, key)
					}
				}
			}
		}
	}

	if len(submitted) == 0 {
		for _, name := range flagFieldNames {
			if v := strings.TrimSpace(c.PostForm(name)); v != "" {
				submitted = append(submitted, v)
				continue
			}
			if v := strings.TrimSpace(c.Query(name)); v != "" {
				submitted = append(submitted, v)
			}
		}
		for _, v := range c.QueryArray("keys") {
			if v = strings.TrimSpace(v); v != "" {
				submitted = append(submitted, v)
			}
		}
	}

	return submitted
}

func sameKeySet(submitted, stored []string) bool {
	set := make(map[string]bool, len(stored))
	for _, key := range stored {
		set[key] = true
	}

	seen := make(map[string]bool, len(submitted))
	for _, key := range submitted {
		if !set[key] {
			return false
		}
		seen[key] = true
	}

	return len(seen) == len(set)
}
