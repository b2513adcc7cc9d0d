// Package telemetry records local query metrics for retrieval tuning.
// Everything stays on disk next to the index; nothing is reported anywhere.
package telemetry

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// LatencyBucket is a histogram bucket label.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// TermCount is a query term and its frequency.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// Summary aggregates recorded query metrics.
type Summary struct {
	TotalQueries      int64                   `json:"totalQueries"`
	StrategyCounts    map[string]int64        `json:"strategyCounts"`
	TopTerms          []TermCount             `json:"topTerms"`
	ZeroResultQueries []string                `json:"zeroResultQueries"`
	LatencyBuckets    map[LatencyBucket]int64 `json:"latencyBuckets"`
}

// zeroResultCap bounds the zero-result query buffer.
const zeroResultCap = 100

// QueryLog is a SQLite-backed query metrics recorder. Safe for concurrent
// use; database/sql serializes access to the single connection.
type QueryLog struct {
	db *sql.DB
}

// Open creates or opens the metrics database at path.
func Open(path string) (*QueryLog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open metrics database: %w", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &QueryLog{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS query_strategy_stats (
		date TEXT NOT NULL,
		strategy TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (date, strategy)
	);

	CREATE TABLE IF NOT EXISTS query_terms (
		term TEXT PRIMARY KEY,
		count INTEGER NOT NULL DEFAULT 1,
		last_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_query_terms_count ON query_terms(count DESC);

	CREATE TABLE IF NOT EXISTS zero_result_queries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query TEXT NOT NULL,
		timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS query_latency_stats (
		date TEXT NOT NULL,
		bucket TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (date, bucket)
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create metrics schema: %w", err)
	}
	return nil
}

// RecordQuery records one retrieval call. Implements the orchestrator's
// Recorder interface. Errors are swallowed: telemetry must never fail a
// search.
func (l *QueryLog) RecordQuery(query string, strategy string, latency time.Duration, results int) {
	today := time.Now().Format("2006-01-02")

	tx, err := l.db.Begin()
	if err != nil {
		return
	}
	defer func() { _ = tx.Rollback() }()

	_, _ = tx.Exec(`
		INSERT INTO query_strategy_stats (date, strategy, count)
		VALUES (?, ?, 1)
		ON CONFLICT(date, strategy) DO UPDATE SET count = count + 1
	`, today, strategy)

	for _, term := range extractTerms(query) {
		_, _ = tx.Exec(`
			INSERT INTO query_terms (term, count, last_seen)
			VALUES (?, 1, CURRENT_TIMESTAMP)
			ON CONFLICT(term) DO UPDATE SET
				count = count + 1,
				last_seen = CURRENT_TIMESTAMP
		`, term)
	}

	if results == 0 {
		_, _ = tx.Exec(`INSERT INTO zero_result_queries (query) VALUES (?)`, query)
		_, _ = tx.Exec(`
			DELETE FROM zero_result_queries
			WHERE id NOT IN (
				SELECT id FROM zero_result_queries
				ORDER BY id DESC
				LIMIT ?
			)
		`, zeroResultCap)
	}

	_, _ = tx.Exec(`
		INSERT INTO query_latency_stats (date, bucket, count)
		VALUES (?, ?, 1)
		ON CONFLICT(date, bucket) DO UPDATE SET count = count + 1
	`, today, string(LatencyToBucket(latency)))

	_ = tx.Commit()
}

// Summarize aggregates all recorded metrics.
func (l *QueryLog) Summarize(topTerms int) (*Summary, error) {
	s := &Summary{
		StrategyCounts: make(map[string]int64),
		LatencyBuckets: make(map[LatencyBucket]int64),
	}

	rows, err := l.db.Query(`SELECT strategy, SUM(count) FROM query_strategy_stats GROUP BY strategy`)
	if err != nil {
		return nil, fmt.Errorf("query strategy counts: %w", err)
	}
	for rows.Next() {
		var strategy string
		var count int64
		if err := rows.Scan(&strategy, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan strategy count: %w", err)
		}
		s.StrategyCounts[strategy] = count
		s.TotalQueries += count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = l.db.Query(`SELECT term, count FROM query_terms ORDER BY count DESC, term ASC LIMIT ?`, topTerms)
	if err != nil {
		return nil, fmt.Errorf("query top terms: %w", err)
	}
	for rows.Next() {
		var tc TermCount
		if err := rows.Scan(&tc.Term, &tc.Count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan term count: %w", err)
		}
		s.TopTerms = append(s.TopTerms, tc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = l.db.Query(`SELECT query FROM zero_result_queries ORDER BY id DESC LIMIT ?`, zeroResultCap)
	if err != nil {
		return nil, fmt.Errorf("query zero-result queries: %w", err)
	}
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan zero-result query: %w", err)
		}
		s.ZeroResultQueries = append(s.ZeroResultQueries, q)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = l.db.Query(`SELECT bucket, SUM(count) FROM query_latency_stats GROUP BY bucket`)
	if err != nil {
		return nil, fmt.Errorf("query latency buckets: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var bucket string
		var count int64
		if err := rows.Scan(&bucket, &count); err != nil {
			return nil, fmt.Errorf("scan latency bucket: %w", err)
		}
		s.LatencyBuckets[LatencyBucket(bucket)] = count
	}
	return s, rows.Err()
}

// Close releases the database handle.
func (l *QueryLog) Close() error {
	return l.db.Close()
}

// extractTerms lowercases the query and keeps whitespace-separated terms of
// length >= 3.
func extractTerms(query string) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if len(w) >= 3 {
			terms = append(terms, w)
		}
	}
	return terms
}
