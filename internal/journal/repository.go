package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/PradhanJi-16/nexus-grid-visor/internal/arbitration"
)

// timeLayout is fixed-width so occurred_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Page size limits for List.
const (
	defaultLimit = 50
	maxLimit     = 500
)

// Filter controls which journal entries List returns.
type Filter struct {
	JunctionID   string                // optional
	Type         arbitration.EventType // optional
	PreemptionID string                // optional
	OverrideID   string                // optional
	Since        time.Time             // optional, inclusive
	Limit        int                   // default 50, max 500
	Offset       int                   // pagination offset
}

// ListResult contains a page of events, newest first.
type ListResult struct {
	Events []arbitration.Event `json:"events"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

// Repository stores and queries control events.
type Repository interface {
	Append(ctx context.Context, ev arbitration.Event) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository keeps the journal in the control_events table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a journal repository on a migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Append inserts one event. Re-appending an event ID is a no-op.
func (r *SQLiteRepository) Append(ctx context.Context, ev arbitration.Event) error {
	if ev.ID == "" {
		return fmt.Errorf("appending control event: empty id")
	}
	details, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshalling control event: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO control_events (id, type, junction_id, preemption_id, override_id, details, occurred_at, seq)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, string(ev.Type), ev.JunctionID,
		nullableString(ev.PreemptionID), nullableString(ev.OverrideID),
		string(details), ev.OccurredAt.UTC().Format(timeLayout), int64(ev.Seq), //nolint:gosec // seq stays far below 2^63
	)
	if err != nil {
		return fmt.Errorf("inserting control event: %w", err)
	}
	return nil
}

// nullableString maps "" to NULL for optional TEXT columns.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns events matching filter, newest first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any
	add := func(cond string, v any) {
		conditions = append(conditions, cond)
		args = append(args, v)
	}
	if filter.JunctionID != "" {
		add("junction_id = ?", filter.JunctionID)
	}
	if filter.Type != "" {
		add("type = ?", string(filter.Type))
	}
	if filter.PreemptionID != "" {
		add("preemption_id = ?", filter.PreemptionID)
	}
	if filter.OverrideID != "" {
		add("override_id = ?", filter.OverrideID)
	}
	if !filter.Since.IsZero() {
		add("occurred_at >= ?", filter.Since.UTC().Format(timeLayout))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM control_events " + where //nolint:gosec // WHERE built from parameterised conditions
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting control events: %w", err)
	}

	query := "SELECT details FROM control_events " + where + //nolint:gosec // WHERE built from parameterised conditions
		" ORDER BY occurred_at DESC, seq DESC, rowid DESC LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("querying control events: %w", err)
	}
	defer rows.Close()

	events := []arbitration.Event{}
	for rows.Next() {
		var details string
		if err := rows.Scan(&details); err != nil {
			return nil, fmt.Errorf("scanning control event: %w", err)
		}
		var ev arbitration.Event
		if err := json.Unmarshal([]byte(details), &ev); err != nil {
			return nil, fmt.Errorf("decoding control event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating control events: %w", err)
	}

	return &ListResult{Events: events, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}
