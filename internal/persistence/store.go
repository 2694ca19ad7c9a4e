package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aristath/rgate/internal/bench"
	"github.com/aristath/rgate/internal/gate"
)

// GateTaskRecord is one stored gate task.
type GateTaskRecord struct {
	Name      string
	Fatal     bool
	Status    string
	StartedAt time.Time
	StoppedAt time.Time
	Error     string
}

// GateRunRecord is one stored gate run with its tasks in execution order.
type GateRunRecord struct {
	ID        int64
	StartedAt time.Time
	StoppedAt time.Time
	ExitCode  int
	Error     string
	Tasks     []GateTaskRecord
}

// BenchResultRecord is the stored outcome of one benchmark id.
type BenchResultRecord struct {
	RunID       int64
	BenchmarkID string
	Backend     string
	Outcome     string
	ExitCode    int
	Message     string
	Duration    time.Duration
	RecordedAt  time.Time
}

// BenchRunRecord is one stored benchmark dispatch.
type BenchRunRecord struct {
	ID        int64
	StartedAt time.Time
	Backend   string
	FailFast  bool
	Failure   int
	NotFound  int
	Message   string
	Results   []BenchResultRecord
}

// Store defines the persistence interface for gate and benchmark history.
type Store interface {
	// Gate runs
	SaveGateReport(ctx context.Context, report *gate.Report) (int64, error)
	GetGateRun(ctx context.Context, id int64) (*GateRunRecord, error)
	ListGateRuns(ctx context.Context, limit int) ([]*GateRunRecord, error)

	// Benchmark runs
	SaveBenchAggregate(ctx context.Context, backendName string, opts bench.Options, startedAt time.Time, agg *bench.Aggregate) (int64, error)
	GetBenchRun(ctx context.Context, id int64) (*BenchRunRecord, error)
	ListBenchRuns(ctx context.Context, limit int) ([]*BenchRunRecord, error)
	BenchmarkHistory(ctx context.Context, benchmarkID string, limit int) ([]BenchResultRecord, error)

	// Lifecycle
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed store at the given path.
// Creates parent directories if needed. Enables WAL mode, foreign keys, and busy timeout.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	// Create parent directories
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent directories: %w", err)
	}

	// Note: modernc.org/sqlite doesn't support _foreign_keys in connection string
	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	return openStore(ctx, connStr)
}

var memoryStores atomic.Int64

// NewMemoryStore creates an in-memory SQLite store for testing.
// Each store gets its own named database; the shared cache lets the
// store's connections see the same data.
func NewMemoryStore(ctx context.Context) (*SQLiteStore, error) {
	connStr := fmt.Sprintf("file:rgate-mem-%d?mode=memory&cache=shared", memoryStores.Add(1))
	return openStore(ctx, connStr)
}

func openStore(ctx context.Context, connStr string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys via PRAGMA (required for modernc.org/sqlite)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// A single writer at a time; history writes are small
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnix(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
