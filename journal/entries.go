package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Error kinds stored with failed entries.
const (
	KindTransport = "transport"
	KindStatus    = "status"
	KindDecode    = "decode"
)

// Entry is one recorded call.
type Entry struct {
	ID           int64     `json:"id"`
	RequestID    string    `json:"request_id"`
	Method       string    `json:"method"`
	URL          string    `json:"url"`
	Host         string    `json:"host"`
	StatusCode   *int      `json:"status_code,omitempty"` // nil when no response arrived
	LatencyMs    int64     `json:"latency_ms"`
	ErrorKind    *string   `json:"error_kind,omitempty"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Failed reports whether the call ended in an error.
func (e *Entry) Failed() bool {
	return e.ErrorKind != nil
}

// Filter narrows List, Count and Stats. Nil fields match everything.
type Filter struct {
	Method     *string
	Host       *string
	StatusCode *int
	FailedOnly bool
	Since      *time.Time
	Until      *time.Time
	Limit      int
	Offset     int
}

// Stats holds aggregated statistics for journal entries
type Stats struct {
	TotalRequests  int            `json:"total_requests"`
	SuccessCount   int            `json:"success_count"`
	ErrorCount     int            `json:"error_count"`
	SuccessRate    float64        `json:"success_rate"`
	AvgLatencyMs   float64        `json:"avg_latency_ms"`
	MaxLatencyMs   int64          `json:"max_latency_ms"`
	RequestsByHost map[string]int `json:"requests_by_host"`
	RequestsByCode map[int]int    `json:"requests_by_code"` // 0 collects calls without a response
	ErrorsByKind   map[string]int `json:"errors_by_kind"`
}

// where builds the WHERE clause shared by List, Count and Stats.
func (f *Filter) where() (string, []any) {
	var (
		clauses = []string{"1=1"}
		args    []any
	)
	if f == nil {
		return "WHERE 1=1", nil
	}
	if f.Method != nil {
		clauses = append(clauses, "method = ?")
		args = append(args, strings.ToUpper(*f.Method))
	}
	if f.Host != nil {
		clauses = append(clauses, "host = ?")
		args = append(args, *f.Host)
	}
	if f.StatusCode != nil {
		clauses = append(clauses, "status_code = ?")
		args = append(args, *f.StatusCode)
	}
	if f.FailedOnly {
		clauses = append(clauses, "error_kind IS NOT NULL")
	}
	if f.Since != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, f.Since.UTC())
	}
	if f.Until != nil {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, f.Until.UTC())
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

// Create inserts e and sets its ID. A zero CreatedAt is stamped with the current time.
func (db *DB) Create(e *Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedAt = e.CreatedAt.UTC()

	result, err := db.conn.Exec(`
		INSERT INTO entries (request_id, method, url, host, status_code, latency_ms, error_kind, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.RequestID, e.Method, e.URL, e.Host, e.StatusCode,
		e.LatencyMs, e.ErrorKind, e.ErrorMessage, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	e.ID = id

	return nil
}

const entryColumns = `id, request_id, method, url, host, status_code, latency_ms, error_kind, error_message, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*Entry, error) {
	e := &Entry{}
	err := s.Scan(
		&e.ID, &e.RequestID, &e.Method, &e.URL, &e.Host, &e.StatusCode,
		&e.LatencyMs, &e.ErrorKind, &e.ErrorMessage, &e.CreatedAt,
	)
	return e, err
}

// List retrieves entries newest first
func (db *DB) List(filter *Filter) ([]*Entry, error) {
	where, args := filter.where()
	query := "SELECT " + entryColumns + " FROM entries " + where + " ORDER BY created_at DESC, id DESC"

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}

	return entries, nil
}

// Get retrieves a single entry. Returns nil when id is unknown.
func (db *DB) Get(id int64) (*Entry, error) {
	e, err := scanEntry(db.conn.QueryRow("SELECT "+entryColumns+" FROM entries WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return e, nil
}

// Count returns the number of entries matching filter
func (db *DB) Count(filter *Filter) (int, error) {
	where, args := filter.where()

	var count int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM entries "+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return count, nil
}

// Prune removes entries older than before
func (db *DB) Prune(before time.Time) (int64, error) {
	result, err := db.conn.Exec("DELETE FROM entries WHERE created_at < ?", before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune entries: %w", err)
	}
	return result.RowsAffected()
}

// Stats retrieves aggregated statistics for entries matching filter. Limit
// and Offset are ignored.
func (db *DB) Stats(filter *Filter) (*Stats, error) {
	stats := &Stats{
		RequestsByHost: make(map[string]int),
		RequestsByCode: make(map[int]int),
		ErrorsByKind:   make(map[string]int),
	}

	where, args := filter.where()

	err := db.conn.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN error_kind IS NULL THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(latency_ms), 0),
			COALESCE(MAX(latency_ms), 0)
		FROM entries `+where, args...).Scan(
		&stats.TotalRequests, &stats.SuccessCount, &stats.AvgLatencyMs, &stats.MaxLatencyMs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get aggregate stats: %w", err)
	}
	stats.ErrorCount = stats.TotalRequests - stats.SuccessCount
	if stats.TotalRequests > 0 {
		stats.SuccessRate = float64(stats.SuccessCount) / float64(stats.TotalRequests)
	}

	if err := db.groupCount("host", where, args, func(key any, n int) {
		stats.RequestsByHost[key.(string)] = n
	}); err != nil {
		return nil, err
	}
	if err := db.groupCount("COALESCE(status_code, 0)", where, args, func(key any, n int) {
		stats.RequestsByCode[int(key.(int64))] = n
	}); err != nil {
		return nil, err
	}
	errWhere := where + " AND error_kind IS NOT NULL"
	if err := db.groupCount("error_kind", errWhere, args, func(key any, n int) {
		stats.ErrorsByKind[key.(string)] = n
	}); err != nil {
		return nil, err
	}

	return stats, nil
}

// groupCount runs "SELECT expr, COUNT(*) ... GROUP BY expr" and feeds each row to fn.
func (db *DB) groupCount(expr, where string, args []any, fn func(key any, n int)) error {
	rows, err := db.conn.Query(fmt.Sprintf("SELECT %s, COUNT(*) FROM entries %s GROUP BY 1", expr, where), args...)
	if err != nil {
		return fmt.Errorf("failed to group by %s: %w", expr, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key any
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("failed to scan %s group: %w", expr, err)
		}
		if b, ok := key.([]byte); ok {
			key = string(b)
		}
		fn(key, n)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating %s groups: %w", expr, err)
	}
	return nil
}
