package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/sipbridge/internal/model"
	"github.com/dukerupert/sipbridge/internal/status"
)

type ArchiveStore struct {
	db *sql.DB
}

func NewArchiveStore(db *sql.DB) *ArchiveStore {
	return &ArchiveStore{db: db}
}

const archiveCols = `id, sip_id, accession_id, archivematica_id, status, created_at, updated_at`

func scanArchive(scanner interface{ Scan(...any) error }) (*model.Archive, error) {
	var a model.Archive
	var amID sql.NullString
	var st string

	err := scanner.Scan(
		&a.ID, &a.SIPID, &a.AccessionID, &amID, &st,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if amID.Valid {
		a.ArchivematicaID = &amID.String
	}
	a.Status = status.ArchiveStatus(st)
	return &a, nil
}

// Create inserts an archive record in NEW state for the given SIP.
func (s *ArchiveStore) Create(sipID, accessionID string) (*model.Archive, error) {
	_, err := s.db.Exec(
		`INSERT INTO archives (sip_id, accession_id, status) VALUES (?, ?, ?)`,
		sipID, accessionID, status.New,
	)
	if err != nil {
		return nil, fmt.Errorf("insert archive: %w", err)
	}
	return s.GetByAccessionID(accessionID)
}

func (s *ArchiveStore) GetByAccessionID(accessionID string) (*model.Archive, error) {
	row := s.db.QueryRow(`SELECT `+archiveCols+` FROM archives WHERE accession_id = ?`, accessionID)
	a, err := scanArchive(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get archive: %w", err)
	}
	return a, nil
}

func (s *ArchiveStore) GetBySIPID(sipID string) (*model.Archive, error) {
	row := s.db.QueryRow(`SELECT `+archiveCols+` FROM archives WHERE sip_id = ?`, sipID)
	a, err := scanArchive(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get archive by sip: %w", err)
	}
	return a, nil
}

// List returns archives newest first, optionally filtered by status.
func (s *ArchiveStore) List(st status.ArchiveStatus) ([]model.Archive, error) {
	query := `SELECT ` + archiveCols + ` FROM archives`
	var args []any
	if st != "" {
		query += ` WHERE status = ?`
		args = append(args, st)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	defer rows.Close()

	var archives []model.Archive
	for rows.Next() {
		a, err := scanArchive(rows)
		if err != nil {
			return nil, fmt.Errorf("scan archive: %w", err)
		}
		archives = append(archives, *a)
	}
	return archives, rows.Err()
}

// ListInProgress returns archives the status poller should check: those in a
// non-final state that already have an Archivematica identifier.
func (s *ArchiveStore) ListInProgress() ([]model.Archive, error) {
	rows, err := s.db.Query(
		`SELECT `+archiveCols+` FROM archives
		 WHERE archivematica_id IS NOT NULL AND status IN (?, ?, ?)
		 ORDER BY updated_at ASC`,
		status.Waiting, status.ProcessingTransfer, status.ProcessingAIP,
	)
	if err != nil {
		return nil, fmt.Errorf("list in-progress archives: %w", err)
	}
	defer rows.Close()

	var archives []model.Archive
	for rows.Next() {
		a, err := scanArchive(rows)
		if err != nil {
			return nil, fmt.Errorf("scan archive: %w", err)
		}
		archives = append(archives, *a)
	}
	return archives, rows.Err()
}

// SetStatus updates the status of an archive.
func (s *ArchiveStore) SetStatus(accessionID string, st status.ArchiveStatus) (*model.Archive, error) {
	_, err := s.db.Exec(
		`UPDATE archives SET status = ?, updated_at = datetime('now') WHERE accession_id = ?`,
		st, accessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("set status: %w", err)
	}
	return s.GetByAccessionID(accessionID)
}

// Update sets the Archivematica identifier and/or status. A nil
// archivematicaID leaves the stored identifier untouched.
func (s *ArchiveStore) Update(accessionID string, archivematicaID *string, st status.ArchiveStatus) (*model.Archive, error) {
	if archivematicaID != nil {
		_, err := s.db.Exec(
			`UPDATE archives SET archivematica_id = ?, status = ?, updated_at = datetime('now') WHERE accession_id = ?`,
			*archivematicaID, st, accessionID,
		)
		if err != nil {
			return nil, fmt.Errorf("update archive: %w", err)
		}
		return s.GetByAccessionID(accessionID)
	}
	return s.SetStatus(accessionID, st)
}
