package model

import "time"

// SIP is a Stored Information Package submitted for archival.
type SIP struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
