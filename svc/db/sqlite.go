package db

import (
	"context"
	"database/sql"
	"strings"
	"sync/atomic"
	"time"

	"pastabin/metrics"
	"pastabin/pkg/domain"

	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

var ErrCircuitOpen = errors.New("database circuit breaker open")

const (
	circuitClosed   = 0
	circuitOpen     = 1
	circuitHalfOpen = 2
	maxFailures     = 5
	cooldownSeconds = 30
)

const (
	defaultMaxOpenConns = 100
	defaultMaxIdleConns = 10
	defaultQueryTimeout = 5 * time.Second
)

type SQLite struct {
	db            *sql.DB
	failures      int32
	circuitState  int32
	circuitOpened int64
	queryTimeout  time.Duration
}

func (s *SQLite) DB() *sql.DB {
	return s.db
}
func NewSQLite(path string) (*SQLite, error) {
	return NewSQLiteWithConfig(path, defaultMaxOpenConns, defaultMaxIdleConns, defaultQueryTimeout)
}

func NewSQLiteWithConfig(path string, maxOpenConns, maxIdleConns int, queryTimeout time.Duration) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open db")
	}
	if maxOpenConns <= 0 {
		maxOpenConns = defaultMaxOpenConns
	}
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping db")
	}
	s := &SQLite{
		db:           db,
		queryTimeout: queryTimeout,
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migration failed")
	}
	return s, nil
}

// dsn sets per-connection options. Immediate transactions take the write
// lock up front so a delete cannot lose its authorize check to a racer.
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_busy_timeout=5000&_txlock=immediate"
}

func (s *SQLite) checkCircuit() error {
	state := atomic.LoadInt32(&s.circuitState)
	switch state {
	case circuitOpen:
		opened := atomic.LoadInt64(&s.circuitOpened)
		if time.Now().Unix()-opened >= cooldownSeconds {
			if atomic.CompareAndSwapInt32(&s.circuitState, circuitOpen, circuitHalfOpen) {
				return nil
			}
		}
		return ErrCircuitOpen
	default:
		return nil
	}
}
func (s *SQLite) recordError(err error) {
	if err == nil {
		atomic.StoreInt32(&s.failures, 0)
		if atomic.SwapInt32(&s.circuitState, circuitClosed) != circuitClosed {
			metrics.CircuitOpen.Set(0)
		}
		return
	}
	if errors.Is(err, sql.ErrNoRows) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return
	}
	failures := atomic.AddInt32(&s.failures, 1)
	if atomic.LoadInt32(&s.circuitState) == circuitHalfOpen {
		s.openCircuit()
		atomic.StoreInt32(&s.failures, 0)
		return
	}
	if failures >= maxFailures && atomic.LoadInt32(&s.circuitState) == circuitClosed {
		s.openCircuit()
	}
}
func (s *SQLite) openCircuit() {
	atomic.StoreInt32(&s.circuitState, circuitOpen)
	atomic.StoreInt64(&s.circuitOpened, time.Now().Unix())
	metrics.CircuitOpen.Set(1)
}
func (s *SQLite) migrate() error {
	_, err := s.db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		return errors.Wrap(err, "enable WAL mode")
	}
	_, err = s.db.Exec("PRAGMA synchronous=FULL")
	if err != nil {
		return errors.Wrap(err, "set synchronous mode")
	}
	query := `
	CREATE TABLE IF NOT EXISTS pastes (
		id TEXT PRIMARY KEY,
		content BLOB NOT NULL,
		secret TEXT,
		created_at DATETIME NOT NULL
	);
	`
	_, err = s.db.Exec(query)
	return err
}

func isPrimaryKeyViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func (s *SQLite) Create(ctx context.Context, id domain.PasteID, content []byte, secret domain.Secret) error {
	if err := s.checkCircuit(); err != nil {
		return err
	}
	queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	if content == nil {
		content = []byte{}
	}
	var stored sql.NullString
	if secret != "" {
		stored = sql.NullString{String: secret.String(), Valid: true}
	}
	q := `INSERT INTO pastes (id, content, secret, created_at) VALUES (?, ?, ?, ?)`
	_, err := s.db.ExecContext(queryCtx, q, id.String(), content, stored, time.Now().UTC())
	if isPrimaryKeyViolation(err) {
		s.recordError(nil)
		return domain.ErrSlotTaken
	}
	s.recordError(err)
	return errors.Wrap(err, "db create")
}
func (s *SQLite) Read(ctx context.Context, id domain.PasteID) ([]byte, error) {
	if err := s.checkCircuit(); err != nil {
		return nil, err
	}
	queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	var content []byte
	err := s.db.QueryRowContext(queryCtx, `SELECT content FROM pastes WHERE id = ?`, id.String()).Scan(&content)
	if err == sql.ErrNoRows {
		return nil, domain.ErrPasteNotFound
	}
	s.recordError(err)
	if err != nil {
		return nil, errors.Wrap(err, "db get")
	}
	return content, nil
}
func (s *SQLite) Delete(ctx context.Context, id domain.PasteID, authorize domain.Authorize) error {
	if err := s.checkCircuit(); err != nil {
		return err
	}
	queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	tx, err := s.db.BeginTx(queryCtx, nil)
	if err != nil {
		s.recordError(err)
		return errors.Wrap(err, "begin delete")
	}
	defer tx.Rollback()
	var secret sql.NullString
	err = tx.QueryRowContext(queryCtx, `SELECT secret FROM pastes WHERE id = ?`, id.String()).Scan(&secret)
	if err == sql.ErrNoRows {
		return domain.ErrPasteNotFound
	}
	if err != nil {
		s.recordError(err)
		return errors.Wrap(err, "select secret")
	}
	if err := authorize(domain.Secret(secret.String), secret.Valid); err != nil {
		return err
	}
	if _, err := tx.ExecContext(queryCtx, `DELETE FROM pastes WHERE id = ?`, id.String()); err != nil {
		s.recordError(err)
		return errors.Wrap(err, "delete paste")
	}
	err = tx.Commit()
	s.recordError(err)
	return errors.Wrap(err, "commit delete")
}
func (s *SQLite) Close() error {
	return s.db.Close()
}
