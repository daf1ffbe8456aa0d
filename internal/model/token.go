package model

import "time"

// Token scopes, from least to most privileged.
const (
	ScopeRead  = "read"
	ScopeWrite = "write"
	ScopeAdmin = "admin"
)

// AccessToken is an opaque bearer token granting API access.
type AccessToken struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Token      string     `json:"-"`
	Scope      string     `json:"scope"`
	Revoked    bool       `json:"revoked"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// ScopeAllows reports whether a token scope covers the required scope.
// admin covers write, write covers read.
func ScopeAllows(have, need string) bool {
	rank := map[string]int{ScopeRead: 0, ScopeWrite: 1, ScopeAdmin: 2}
	h, ok := rank[have]
	if !ok {
		return false
	}
	n, ok := rank[need]
	if !ok {
		return false
	}
	return h >= n
}
