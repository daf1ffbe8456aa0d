// Package poller keeps archive statuses in sync with Archivematica by
// periodically checking every in-progress archive against the dashboard API.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/sipbridge/internal/archivematica"
	"github.com/dukerupert/sipbridge/internal/status"
	"github.com/dukerupert/sipbridge/internal/store"
	"github.com/dukerupert/sipbridge/internal/websocket"
	"github.com/sethvargo/go-retry"
)

const defaultInterval = 60 * time.Second

// ingestStatuser is the slice of the Archivematica client the poller needs.
type ingestStatuser interface {
	Configured() bool
	IngestStatus(ctx context.Context, uuid string) (*archivematica.IngestStatus, error)
}

// Poller periodically refreshes in-progress archives from Archivematica.
type Poller struct {
	mu       sync.RWMutex
	archives *store.ArchiveStore
	client   ingestStatuser
	hub      *websocket.Hub
	logger   *slog.Logger
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates a poller. A zero interval means the 60s default.
func New(archives *store.ArchiveStore, client ingestStatuser, hub *websocket.Hub, interval time.Duration, logger *slog.Logger) *Poller {
	if interval == 0 {
		interval = defaultInterval
	}
	return &Poller{
		archives: archives,
		client:   client,
		hub:      hub,
		logger:   logger,
		interval: interval,
	}
}

// Start begins the poll loop.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	p.mu.Unlock()

	go func() {
		defer close(p.done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.Tick(ctx)
			}
		}
	}()
}

// Stop gracefully stops the poller.
func (p *Poller) Stop() {
	p.mu.RLock()
	cancel := p.cancel
	done := p.done
	p.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Tick refreshes every in-progress archive once.
func (p *Poller) Tick(ctx context.Context) {
	if !p.client.Configured() {
		return
	}

	archives, err := p.archives.ListInProgress()
	if err != nil {
		p.logger.Error("list in-progress archives", "error", err)
		return
	}

	for _, ark := range archives {
		if err := p.refresh(ctx, ark.AccessionID, *ark.ArchivematicaID, ark.Status); err != nil {
			p.logger.Warn("refresh archive", "accession_id", ark.AccessionID, "error", err)
		}
	}
}

// refresh fetches the remote status with bounded backoff and persists the
// transition. Remote HTTP errors are not retried: a 404 today is a 404 in a
// second, only transport failures are worth retrying within a tick.
func (p *Poller) refresh(ctx context.Context, accessionID, amID string, current status.ArchiveStatus) error {
	var ingest *archivematica.IngestStatus

	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		st, err := p.client.IngestStatus(ctx, amID)
		if err != nil {
			if errors.Is(err, archivematica.ErrUnreachable) {
				return retry.RetryableError(err)
			}
			return err
		}
		ingest = st
		return nil
	})
	if err != nil {
		return err
	}

	next, ok := status.FromString(ingest.Status)
	if !ok {
		p.logger.Warn("unknown archivematica status", "accession_id", accessionID, "status", ingest.Status)
		return nil
	}
	if next == current {
		return nil
	}

	if _, err := p.archives.SetStatus(accessionID, next); err != nil {
		return err
	}

	p.logger.Info("archive status changed", "accession_id", accessionID, "from", current, "to", next)
	if p.hub != nil {
		p.hub.Broadcast(websocket.StatusEvent(accessionID, next))
	}
	return nil
}
