package model

import (
	"time"

	"github.com/dukerupert/sipbridge/internal/status"
)

// Archive tracks the archival state of one SIP in Archivematica.
// ArchivematicaID stays nil until Archivematica has accepted the transfer;
// downloading the AIP requires it to be set.
type Archive struct {
	ID              int64                `json:"id"`
	SIPID           string               `json:"sip_id"`
	AccessionID     string               `json:"accession_id"`
	ArchivematicaID *string              `json:"archivematica_id"`
	Status          status.ArchiveStatus `json:"status"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}
