package status

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/healthbridge/internal/backfill"
	"github.com/nerrad567/healthbridge/internal/daemon"
	"github.com/nerrad567/healthbridge/internal/journal"
	"github.com/nerrad567/healthbridge/internal/progress"
)

// Snapshotter exposes a copy of the progress state.
type Snapshotter interface {
	Snapshot() progress.Snapshot
}

// JournalReader summarises the run journal.
type JournalReader interface {
	Summary(ctx context.Context) (journal.Summary, error)
}

// DaemonReader exposes the daemon loop state.
type DaemonReader interface {
	Status() daemon.Status
}

// ReportSource produces reports on demand.
type ReportSource interface {
	Report(ctx context.Context) (Report, error)
}

// Provider builds reports from live components.
type Provider struct {
	store   Snapshotter
	rng     backfill.Range
	journal JournalReader
	daemon  DaemonReader
	now     func() time.Time
}

// NewProvider creates a provider for the given progress store and range.
func NewProvider(store Snapshotter, rng backfill.Range) *Provider {
	return &Provider{
		store: store,
		rng:   rng,
		now:   time.Now,
	}
}

// SetJournal adds journal figures to reports.
func (p *Provider) SetJournal(j JournalReader) {
	p.journal = j
}

// SetDaemon adds the daemon loop state to reports.
func (p *Provider) SetDaemon(d DaemonReader) {
	p.daemon = d
}

// Report builds a report from the current state.
func (p *Provider) Report(ctx context.Context) (Report, error) {
	in := Inputs{
		Snapshot: p.store.Snapshot(),
		Range:    p.rng,
		Now:      p.now(),
	}

	if p.journal != nil {
		summary, err := p.journal.Summary(ctx)
		if err != nil {
			return Report{}, fmt.Errorf("reading journal: %w", err)
		}
		in.Journal = &summary
	}

	if p.daemon != nil {
		st := p.daemon.Status()
		in.Daemon = &st
	}

	return Build(in), nil
}
