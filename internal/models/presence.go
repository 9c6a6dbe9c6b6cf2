package models

import "time"

// PresenceRecord describes one open author connection. It lives only in
// memory for the lifetime of the connection; there is at most one record per
// connection, while one author may hold several records (multiple devices).
type PresenceRecord struct {
	ConnectionID string    `json:"connection_id"`
	AuthorName   string    `json:"author_name"`
	ConnectedAt  time.Time `json:"connected_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}
