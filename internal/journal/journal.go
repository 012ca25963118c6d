// Package journal records the history of backfill passes in SQLite:
// every finished pass, every day attempt and every connectivity change.
//
// The journal answers "what happened" questions the progress file cannot,
// such as which days keep failing and why. It is never consulted to decide
// what to import.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/healthbridge/internal/backfill"
	"github.com/nerrad567/healthbridge/internal/infrastructure/config"
	"github.com/nerrad567/healthbridge/internal/infrastructure/database"
	"github.com/nerrad567/healthbridge/migrations"
)

// Outcome values stored in day_attempts.outcome.
const (
	OutcomeImported = "imported"
	OutcomeFailed   = "failed"
)

// maxMessageLength caps stored error messages.
const maxMessageLength = 500

// recentFailuresLimit is how many failures Summary returns.
const recentFailuresLimit = 5

// PassRecord is one finished pass.
type PassRecord struct {
	ID         int64           `json:"id"`
	FinishedAt time.Time       `json:"finished_at"`
	Result     backfill.Result `json:"result"`
}

// DayAttempt is one attempt at importing a day.
type DayAttempt struct {
	Day          string    `json:"day"`
	Outcome      string    `json:"outcome"`
	Points       int       `json:"points"`
	ErrorClass   string    `json:"error_class,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// Summary aggregates the journal for status reporting.
type Summary struct {
	Passes           int            `json:"passes"`
	ImportedAttempts int            `json:"imported_attempts"`
	FailedAttempts   int            `json:"failed_attempts"`
	FailuresByClass  map[string]int `json:"failures_by_class"`
	RecentFailures   []DayAttempt   `json:"recent_failures"`
	LastPass         *PassRecord    `json:"last_pass,omitempty"`
	// FirstAttemptAt is when the first day attempt was recorded.
	FirstAttemptAt time.Time `json:"first_attempt_at,omitzero"`
	// LastOnline is the last recorded connectivity state, nil when none.
	LastOnline   *bool     `json:"last_online,omitempty"`
	LastOnlineAt time.Time `json:"last_online_at,omitzero"`
}

// Repository defines the journal operations.
type Repository interface {
	RecordDay(ctx context.Context, report backfill.DayReport) error
	RecordFailure(ctx context.Context, dayErr backfill.DayError) error
	RecordPass(ctx context.Context, result backfill.Result) error
	RecordConnectivity(ctx context.Context, online bool) error
	Summary(ctx context.Context) (Summary, error)
}

// SQLiteRepository stores the journal in SQLite.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a repository on an already migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

// Open opens the journal database, applies migrations and returns the
// repository together with the database to close on shutdown.
func Open(ctx context.Context, cfg config.JournalConfig) (*SQLiteRepository, *database.DB, error) {
	db, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("opening journal: %w", err)
	}
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, nil, fmt.Errorf("migrating journal: %w", err)
	}
	return NewSQLiteRepository(db.DB), db, nil
}

// RecordDay inserts an imported day attempt.
func (r *SQLiteRepository) RecordDay(ctx context.Context, report backfill.DayReport) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO day_attempts (day, outcome, points, query_ms, write_ms, total_ms, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		report.Day.Format(backfill.DateLayout), OutcomeImported, report.Points,
		report.QueryDuration.Milliseconds(), report.WriteDuration.Milliseconds(),
		report.TotalDuration.Milliseconds(),
		r.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("inserting day attempt: %w", err)
	}
	return nil
}

// RecordFailure inserts a failed day attempt.
func (r *SQLiteRepository) RecordFailure(ctx context.Context, dayErr backfill.DayError) error {
	msg := ""
	if dayErr.Err != nil {
		msg = truncate(dayErr.Err.Error(), maxMessageLength)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO day_attempts (day, outcome, error_class, error_message, recorded_at)
		 VALUES (?, ?, ?, ?, ?)`,
		dayErr.Day.Format(backfill.DateLayout), OutcomeFailed,
		nullableString(string(dayErr.Class)), nullableString(msg),
		r.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("inserting day failure: %w", err)
	}
	return nil
}

// RecordPass inserts a pass summary.
func (r *SQLiteRepository) RecordPass(ctx context.Context, res backfill.Result) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO passes (finished_at, days_total, days_completed, days_imported, days_failed,
		                     days_remaining, points, network_lost, interrupted)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.timestamp(),
		res.DaysTotal, res.DaysCompleted, res.DaysImported, res.DaysFailed,
		res.DaysRemaining, res.PointsWritten, res.NetworkLost, res.Interrupted,
	)
	if err != nil {
		return fmt.Errorf("inserting pass: %w", err)
	}
	return nil
}

// RecordConnectivity inserts a device reachability change.
func (r *SQLiteRepository) RecordConnectivity(ctx context.Context, online bool) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO connectivity (online, recorded_at) VALUES (?, ?)`,
		online, r.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("inserting connectivity: %w", err)
	}
	return nil
}

// Summary aggregates attempts, the latest pass and the latest connectivity state.
func (r *SQLiteRepository) Summary(ctx context.Context) (Summary, error) {
	s := Summary{FailuresByClass: make(map[string]int)}

	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM passes").Scan(&s.Passes); err != nil {
		return Summary{}, fmt.Errorf("counting passes: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT outcome, COALESCE(error_class, ''), COUNT(*)
		 FROM day_attempts GROUP BY outcome, error_class`)
	if err != nil {
		return Summary{}, fmt.Errorf("counting day attempts: %w", err)
	}
	for rows.Next() {
		var outcome, class string
		var n int
		if err := rows.Scan(&outcome, &class, &n); err != nil {
			rows.Close()
			return Summary{}, fmt.Errorf("scanning day attempts: %w", err)
		}
		switch outcome {
		case OutcomeImported:
			s.ImportedAttempts += n
		case OutcomeFailed:
			s.FailedAttempts += n
			s.FailuresByClass[class] += n
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Summary{}, fmt.Errorf("iterating day attempts: %w", err)
	}

	var first sql.NullString
	if err := r.db.QueryRowContext(ctx, "SELECT MIN(recorded_at) FROM day_attempts").Scan(&first); err != nil {
		return Summary{}, fmt.Errorf("reading first attempt: %w", err)
	}
	if first.Valid {
		s.FirstAttemptAt = parseTimestamp(first.String)
	}

	if s.RecentFailures, err = r.recentFailures(ctx); err != nil {
		return Summary{}, err
	}
	if s.LastPass, err = r.lastPass(ctx); err != nil {
		return Summary{}, err
	}

	var online bool
	var at string
	err = r.db.QueryRowContext(ctx,
		"SELECT online, recorded_at FROM connectivity ORDER BY id DESC LIMIT 1",
	).Scan(&online, &at)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return Summary{}, fmt.Errorf("reading connectivity: %w", err)
	default:
		s.LastOnline = &online
		s.LastOnlineAt = parseTimestamp(at)
	}

	return s, nil
}

func (r *SQLiteRepository) recentFailures(ctx context.Context) ([]DayAttempt, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT day, COALESCE(error_class, ''), COALESCE(error_message, ''), recorded_at
		 FROM day_attempts WHERE outcome = ? ORDER BY id DESC LIMIT ?`,
		OutcomeFailed, recentFailuresLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying failures: %w", err)
	}
	defer rows.Close()

	var out []DayAttempt
	for rows.Next() {
		a := DayAttempt{Outcome: OutcomeFailed}
		var at string
		if err := rows.Scan(&a.Day, &a.ErrorClass, &a.ErrorMessage, &at); err != nil {
			return nil, fmt.Errorf("scanning failure: %w", err)
		}
		a.RecordedAt = parseTimestamp(at)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating failures: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) lastPass(ctx context.Context) (*PassRecord, error) {
	var p PassRecord
	var at string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, finished_at, days_total, days_completed, days_imported, days_failed,
		        days_remaining, points, network_lost, interrupted
		 FROM passes ORDER BY id DESC LIMIT 1`,
	).Scan(&p.ID, &at,
		&p.Result.DaysTotal, &p.Result.DaysCompleted, &p.Result.DaysImported, &p.Result.DaysFailed,
		&p.Result.DaysRemaining, &p.Result.PointsWritten, &p.Result.NetworkLost, &p.Result.Interrupted,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading last pass: %w", err)
	}
	p.FinishedAt = parseTimestamp(at)
	return &p, nil
}

func (r *SQLiteRepository) timestamp() string {
	return r.now().UTC().Format(time.RFC3339)
}

// nullableString returns nil for empty strings, or the string otherwise.
// Used for nullable TEXT columns in SQLite.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func parseTimestamp(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s) //nolint:errcheck // Format is controlled
	return t
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
