// Package status defines the archive lifecycle states and the translation
// from status strings reported by Archivematica to local states.
package status

// ArchiveStatus is the local lifecycle state of an archive record.
type ArchiveStatus string

const (
	// New means the SIP exists but nothing has been sent to Archivematica.
	New ArchiveStatus = "NEW"
	// Waiting means Archivematica needs user input before continuing.
	Waiting ArchiveStatus = "WAITING"
	// ProcessingTransfer means the transfer is being processed.
	ProcessingTransfer ArchiveStatus = "PROCESSING_TRANSFER"
	// ProcessingAIP means the SIP has been accepted and the AIP is being built.
	ProcessingAIP ArchiveStatus = "PROCESSING_AIP"
	// Registered means the AIP is stored and retrievable.
	Registered ArchiveStatus = "REGISTERED"
	// Failed means Archivematica rejected or failed the ingest.
	Failed ArchiveStatus = "FAILED"
	// Deleted means the AIP was removed from Archivematica.
	Deleted ArchiveStatus = "DELETED"
	// Ignored means the record is excluded from archival.
	Ignored ArchiveStatus = "IGNORED"
)

// translate maps every accepted status token, both Archivematica-reported
// strings and local state names, to a local state.
var translate = map[string]ArchiveStatus{
	"NEW":                 New,
	"WAITING":             Waiting,
	"USER_INPUT":          Waiting,
	"PROCESSING":          ProcessingTransfer,
	"PROCESSING_TRANSFER": ProcessingTransfer,
	"SIP_PROCESSING":      ProcessingAIP,
	"AIP_PROCESSING":      ProcessingAIP,
	"PROCESSING_AIP":      ProcessingAIP,
	"COMPLETE":            Registered,
	"REGISTERED":          Registered,
	"FAILED":              Failed,
	"REJECTED":            Failed,
	"DELETED":             Deleted,
	"IGNORED":             Ignored,
}

// Valid reports whether s is a recognized status token.
func Valid(s string) bool {
	_, ok := translate[s]
	return ok
}

// FromString translates a status token to its local state. The boolean is
// false for unknown tokens.
func FromString(s string) (ArchiveStatus, bool) {
	st, ok := translate[s]
	return st, ok
}

// InProgress reports whether the state can still change on the Archivematica
// side, i.e. whether the poller should keep checking it.
func (s ArchiveStatus) InProgress() bool {
	switch s {
	case Waiting, ProcessingTransfer, ProcessingAIP:
		return true
	}
	return false
}

func (s ArchiveStatus) String() string {
	return string(s)
}
