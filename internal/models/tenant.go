package models

// Maps a long-lived tenant credential to its display identity. Entries
// come from the token file loaded at startup and never change afterwards.
type TenantEntry struct {
	Token    string `json:"token"`
	Abbr     string `json:"abbr"`
	FullName string `json:"full_name"`
}
