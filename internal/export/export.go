// Package export snapshots the archive registry and ships encrypted copies
// to S3-compatible storage, so the registry itself survives the loss of the
// host even though the AIPs live in Archivematica.
package export

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Config holds export manager configuration.
type Config struct {
	S3         S3Config
	DBPath     string
	Passphrase string
	Prefix     string
	Interval   time.Duration
}

// State represents the export manager state.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

// Status holds the current export manager status.
type Status struct {
	State      State      `json:"state"`
	LastExport *time.Time `json:"last_export,omitempty"`
	LastKey    string     `json:"last_key,omitempty"`
	Error      string     `json:"error,omitempty"`
	InProgress bool       `json:"in_progress"`
}

// Manager ships encrypted registry snapshots to S3-compatible storage.
type Manager struct {
	mu     sync.RWMutex
	cfg    Config
	status Status
	db     *sql.DB
	client s3Client
	logger *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates an export manager. It stays disabled unless bucket,
// credentials and a passphrase are all configured.
func NewManager(cfg Config, db *sql.DB, logger *slog.Logger) *Manager {
	if cfg.Interval == 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "sipbridge"
	}

	m := &Manager{
		cfg:    cfg,
		db:     db,
		logger: logger,
		status: Status{State: StateDisabled},
	}

	if cfg.S3.Bucket != "" && cfg.S3.AccessKey != "" && cfg.S3.SecretKey != "" && cfg.Passphrase != "" {
		m.client = newS3Client(cfg.S3)
		m.status.State = StateIdle
	}

	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether exports can run.
func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.State != StateDisabled
}

// Status returns the current export status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Start begins the scheduled export loop.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.status.State == StateDisabled {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	interval := m.cfg.Interval
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.RunNow(ctx); err != nil {
					m.logger.Error("scheduled export", "error", err)
				}
			}
		}
	}()
}

// Stop gracefully stops the export manager.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// RunNow performs one export: snapshot the registry, encrypt it, upload it.
func (m *Manager) RunNow(ctx context.Context) error {
	m.mu.Lock()
	if m.status.State == StateDisabled {
		m.mu.Unlock()
		return fmt.Errorf("export disabled: configure bucket, credentials and passphrase")
	}
	if m.status.InProgress {
		m.mu.Unlock()
		return fmt.Errorf("export already in progress")
	}
	m.status.InProgress = true
	m.status.State = StateRunning
	m.mu.Unlock()

	err := m.export(ctx)

	m.mu.Lock()
	m.status.InProgress = false
	if err != nil {
		m.status.State = StateError
		m.status.Error = err.Error()
	} else {
		now := time.Now().UTC()
		m.status.State = StateIdle
		m.status.Error = ""
		m.status.LastExport = &now
	}
	m.mu.Unlock()
	return err
}

func (m *Manager) export(ctx context.Context) error {
	tmpDir, err := os.MkdirTemp("", "sipbridge-export-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	snapshot := filepath.Join(tmpDir, "registry.db")
	if err := m.snapshot(snapshot); err != nil {
		return err
	}

	salt, err := GenerateSalt()
	if err != nil {
		return err
	}
	encrypted := snapshot + ".enc"
	if err := EncryptFile(snapshot, encrypted, m.cfg.Passphrase, salt); err != nil {
		return fmt.Errorf("encrypt snapshot: %w", err)
	}

	f, err := os.Open(encrypted)
	if err != nil {
		return fmt.Errorf("open encrypted snapshot: %w", err)
	}
	defer f.Close()

	key := fmt.Sprintf("%s/registry-%s.db.enc", m.cfg.Prefix, time.Now().UTC().Format("20060102-150405"))
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(m.cfg.S3.Bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("upload snapshot: %w", err)
	}

	m.mu.Lock()
	m.status.LastKey = key
	m.mu.Unlock()

	m.logger.Info("registry exported", "key", key)
	return nil
}

// snapshot writes a consistent copy of the live database using VACUUM INTO.
func (m *Manager) snapshot(dst string) error {
	// sqlite wants a quoted literal here; the path comes from MkdirTemp, but
	// escape anyway.
	path := strings.ReplaceAll(dst, "'", "''")
	if _, err := m.db.Exec(fmt.Sprintf("VACUUM INTO '%s'", path)); err != nil {
		return fmt.Errorf("vacuum into: %w", err)
	}
	return nil
}
