package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/flowrelay/internal/db"
)

// ErrNotFound is returned by GetByID for unknown ids.
var ErrNotFound = errors.New("exchange not found")

// Store provides persistence for relay exchanges.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Record inserts a new exchange. If ex.ID is empty a UUID is generated; a
// zero Timestamp means now.
func (s *Store) Record(ctx context.Context, ex Exchange) error {
	if ex.ID == "" {
		ex.ID = uuid.New().String()
	}
	if ex.Timestamp.IsZero() {
		ex.Timestamp = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO relay_exchanges (
			id, request_id, timestamp, platform, channel_id, user_id,
			question, outcome, status_code, answer_chars, elapsed_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ex.ID,
		ex.RequestID,
		ex.Timestamp.UTC().Format(time.DateTime),
		ex.Platform,
		ex.ChannelID,
		ex.UserID,
		ex.Question,
		ex.Outcome,
		ex.StatusCode,
		ex.AnswerChars,
		ex.ElapsedMS,
	)
	if err != nil {
		return fmt.Errorf("inserting exchange: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, request_id, timestamp, platform, channel_id, user_id,
	question, outcome, status_code, answer_chars, elapsed_ms FROM relay_exchanges`

// GetByID retrieves a single exchange.
func (s *Store) GetByID(ctx context.Context, id string) (*Exchange, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	ex, err := scanInto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return ex, err
}

// QueryFilter controls which exchanges are returned by Query.
type QueryFilter struct {
	Platform  string
	ChannelID string
	UserID    string
	Outcome   string
	Since     *time.Time
	Until     *time.Time
	Limit     int
	Offset    int
}

func (f QueryFilter) where() (string, []any) {
	var (
		clauses []string
		args    []any
	)

	if f.Platform != "" {
		clauses = append(clauses, "platform = ?")
		args = append(args, f.Platform)
	}
	if f.ChannelID != "" {
		clauses = append(clauses, "channel_id = ?")
		args = append(args, f.ChannelID)
	}
	if f.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Outcome != "" {
		clauses = append(clauses, "outcome = ?")
		args = append(args, f.Outcome)
	}
	if f.Since != nil {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, f.Since.UTC().Format(time.DateTime))
	}
	if f.Until != nil {
		clauses = append(clauses, "timestamp <= ?")
		args = append(args, f.Until.UTC().Format(time.DateTime))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// Query returns exchanges matching the filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Exchange, error) {
	where, args := filter.where()
	query := selectColumns + where + " ORDER BY timestamp DESC, rowid DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	} else if filter.Offset > 0 {
		query += fmt.Sprintf(" LIMIT -1 OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying exchanges: %w", err)
	}
	defer rows.Close()

	var exchanges []Exchange
	for rows.Next() {
		ex, err := scanInto(rows)
		if err != nil {
			return nil, err
		}
		exchanges = append(exchanges, *ex)
	}
	return exchanges, rows.Err()
}

// Stats aggregates the exchanges matching filter. Limit and Offset are ignored.
func (s *Store) Stats(ctx context.Context, filter QueryFilter) (*Stats, error) {
	where, args := filter.where()
	rows, err := s.db.QueryContext(ctx,
		"SELECT outcome, COUNT(*), COALESCE(AVG(elapsed_ms), 0) FROM relay_exchanges"+where+" GROUP BY outcome",
		args...)
	if err != nil {
		return nil, fmt.Errorf("aggregating exchanges: %w", err)
	}
	defer rows.Close()

	stats := &Stats{ByOutcome: make(map[string]OutcomeStats)}
	var totalElapsed float64
	for rows.Next() {
		var (
			outcome string
			st      OutcomeStats
		)
		if err := rows.Scan(&outcome, &st.Count, &st.AvgElapsedMS); err != nil {
			return nil, fmt.Errorf("scanning stats: %w", err)
		}
		stats.ByOutcome[outcome] = st
		stats.Total += st.Count
		totalElapsed += st.AvgElapsedMS * float64(st.Count)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if stats.Total > 0 {
		stats.AvgElapsedMS = totalElapsed / float64(stats.Total)
	}
	return stats, nil
}

// DeleteBefore removes all exchanges older than the given time.
// Returns the number of deleted rows.
func (s *Store) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM relay_exchanges WHERE timestamp < ?",
		before.UTC().Format(time.DateTime),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting old exchanges: %w", err)
	}
	return res.RowsAffected()
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanInto(sc scanner) (*Exchange, error) {
	var (
		ex Exchange
		ts string
	)

	err := sc.Scan(
		&ex.ID, &ex.RequestID, &ts, &ex.Platform, &ex.ChannelID, &ex.UserID,
		&ex.Question, &ex.Outcome, &ex.StatusCode, &ex.AnswerChars, &ex.ElapsedMS,
	)
	if err != nil {
		return nil, err
	}

	if t, parseErr := time.Parse(time.DateTime, ts); parseErr == nil {
		ex.Timestamp = t
	} else if t, parseErr := time.Parse(time.RFC3339Nano, ts); parseErr == nil {
		ex.Timestamp = t.UTC()
	}

	return &ex, nil
}
