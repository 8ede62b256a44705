package tenant

import (
	"encoding/json"
	"log"
	"os"
	"strings"

	"github.com/aman-churiwal/redaction-gateway/internal/models"
)

// Registry holds the static tenant-token table. It is built once at
// startup and read-only afterwards, so lookups need no locking.
type Registry struct {
	byToken map[string]models.TenantEntry
}

// Loads tenant entries from a JSON array file. A missing or malformed
// file yields an empty registry with a logged warning rather than an
// error: the service still starts, it just cannot authenticate anyone.
func Load(path string) *Registry {
	registry := &Registry{byToken: make(map[string]models.TenantEntry)}

	raw, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Tenant token file not found at %s", path)
		return registry
	}

	var entries []models.TenantEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		log.Printf("Tenant token file %s is not valid JSON: %v", path, err)
		return registry
	}

	for _, entry := range entries {
		token := strings.TrimSpace(entry.Token)
		if token == "" {
			continue
		}
		entry.Token = token
		registry.byToken[token] = entry
	}

	return registry
}

func (r *Registry) Lookup(token string) (*models.TenantEntry, bool) {
	entry, ok := r.byToken[token]
	if !ok {
		return nil, false
	}
	return &entry, true
}

func (r *Registry) Len() int {
	return len(r.byToken)
}
