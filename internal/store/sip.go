package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/sipbridge/internal/model"
	"github.com/google/uuid"
)

type SIPStore struct {
	db *sql.DB
}

func NewSIPStore(db *sql.DB) *SIPStore {
	return &SIPStore{db: db}
}

const sipCols = `id, name, created_at`

func scanSIP(scanner interface{ Scan(...any) error }) (*model.SIP, error) {
	var s model.SIP
	if err := scanner.Scan(&s.ID, &s.Name, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a SIP with a fresh UUID and returns it.
func (s *SIPStore) Create(name string) (*model.SIP, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(`INSERT INTO sips (id, name) VALUES (?, ?)`, id, name)
	if err != nil {
		return nil, fmt.Errorf("insert sip: %w", err)
	}
	return s.GetByID(id)
}

func (s *SIPStore) GetByID(id string) (*model.SIP, error) {
	row := s.db.QueryRow(`SELECT `+sipCols+` FROM sips WHERE id = ?`, id)
	sip, err := scanSIP(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sip: %w", err)
	}
	return sip, nil
}

func (s *SIPStore) List() ([]model.SIP, error) {
	rows, err := s.db.Query(`SELECT ` + sipCols + ` FROM sips ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sips: %w", err)
	}
	defer rows.Close()

	var sips []model.SIP
	for rows.Next() {
		sip, err := scanSIP(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sip: %w", err)
		}
		sips = append(sips, *sip)
	}
	return sips, rows.Err()
}
