package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/dukerupert/sipbridge/internal/model"
)

type TokenStore struct {
	db *sql.DB
}

func NewTokenStore(db *sql.DB) *TokenStore {
	return &TokenStore{db: db}
}

const tokenCols = `id, name, token, scope, revoked, created_at, last_used_at`

func scanToken(scanner interface{ Scan(...any) error }) (*model.AccessToken, error) {
	var t model.AccessToken
	var revoked int
	var lastUsed sql.NullTime

	err := scanner.Scan(&t.ID, &t.Name, &t.Token, &t.Scope, &revoked, &t.CreatedAt, &lastUsed)
	if err != nil {
		return nil, err
	}

	t.Revoked = revoked != 0
	if lastUsed.Valid {
		t.LastUsedAt = &lastUsed.Time
	}
	return &t, nil
}

// Create mints a new token with a random 32-byte secret.
func (s *TokenStore) Create(name, scope string) (*model.AccessToken, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	secret := hex.EncodeToString(buf)

	result, err := s.db.Exec(
		`INSERT INTO access_tokens (name, token, scope) VALUES (?, ?, ?)`,
		name, secret, scope,
	)
	if err != nil {
		return nil, fmt.Errorf("insert token: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *TokenStore) GetByID(id int64) (*model.AccessToken, error) {
	row := s.db.QueryRow(`SELECT `+tokenCols+` FROM access_tokens WHERE id = ?`, id)
	t, err := scanToken(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}
	return t, nil
}

// GetBySecret looks up a non-revoked token by its secret and stamps
// last_used_at. Unknown or revoked secrets return (nil, nil).
func (s *TokenStore) GetBySecret(secret string) (*model.AccessToken, error) {
	row := s.db.QueryRow(`SELECT `+tokenCols+` FROM access_tokens WHERE token = ? AND revoked = 0`, secret)
	t, err := scanToken(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get token by secret: %w", err)
	}

	if _, err := s.db.Exec(`UPDATE access_tokens SET last_used_at = datetime('now') WHERE id = ?`, t.ID); err != nil {
		return nil, fmt.Errorf("stamp token use: %w", err)
	}
	return t, nil
}

// Revoke marks a token unusable. Revocation is permanent.
func (s *TokenStore) Revoke(id int64) error {
	_, err := s.db.Exec(`UPDATE access_tokens SET revoked = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (s *TokenStore) List() ([]model.AccessToken, error) {
	rows, err := s.db.Query(`SELECT ` + tokenCols + ` FROM access_tokens ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	var tokens []model.AccessToken
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		tokens = append(tokens, *t)
	}
	return tokens, rows.Err()
}
