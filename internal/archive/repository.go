package archive

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/halcyon/robomon/internal/errors"
	"codeberg.org/halcyon/robomon/internal/frame"
	"codeberg.org/halcyon/robomon/internal/logger"

	_ "github.com/mattn/go-sqlite3"
)

// pendingRow is one buffered insert, for either table.
type pendingRow struct {
	sql  string
	args []interface{}
}

type repository struct {
	db            *sql.DB
	cfg           Config
	mu            sync.Mutex
	buffer        []pendingRow
	flushTicker   *time.Ticker
	shutdownChan  chan struct{}
	flushDoneChan chan struct{}
}

func NewRepository(cfg Config) (Repository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	// WAL keeps ingestion writes from stalling readers
	dsn := cfg.DBPath + "?_journal=WAL&_auto_vacuum=2"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	repo := &repository{
		db:            db,
		cfg:           cfg,
		buffer:        make([]pendingRow, 0, cfg.BatchSize),
		shutdownChan:  make(chan struct{}),
		flushDoneChan: make(chan struct{}),
	}

	repo.flushTicker = time.NewTicker(time.Duration(cfg.BatchTimeout) * time.Second)
	go repo.flusher()

	return repo, nil
}

func (r *repository) StoreThermal(f *frame.ThermalFrame) error {
	var imagePath interface{}
	if f.ImagePath != nil {
		imagePath = *f.ImagePath
	}

	return r.store(pendingRow{
		sql:  insertThermalSQL,
		args: []interface{}{f.FrameNo, f.Timestamp, f.TMin, f.TMax, f.TMean, imagePath},
	})
}

func (r *repository) StoreTorque(s *frame.TorqueSnapshot) error {
	maxDiff := 0.0
	for _, d := range s.Diffs {
		if d > maxDiff {
			maxDiff = d
		}
	}

	return r.store(pendingRow{
		sql:  insertTorqueSQL,
		args: []interface{}{s.FrameNo, s.Timestamp, maxDiff, boolToInt(s.Anomaly)},
	})
}

func (r *repository) store(row pendingRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buffer = append(r.buffer, row)

	if len(r.buffer) >= r.cfg.BatchSize {
		return r.flush()
	}

	return nil
}

func (r *repository) Close() error {
	// Signal the flusher goroutine to stop
	close(r.shutdownChan)
	r.flushTicker.Stop()

	// Wait for the flusher to finish its final flush
	<-r.flushDoneChan

	// Checkpoint WAL and cleanup on close
	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}

	if err := r.db.Close(); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}

	logger.Debug().Msg("Frame archive closed")

	return nil
}

func (r *repository) flusher() {
	defer close(r.flushDoneChan)

	for {
		select {
		case <-r.flushTicker.C:
			r.mu.Lock()
			if err := r.flush(); err != nil {
				logger.Error().Err(err).Msg("Archive flush failed")
			}
			r.mu.Unlock()
		case <-r.shutdownChan:
			r.mu.Lock()
			if err := r.flush(); err != nil {
				logger.Error().Err(err).Msg("Archive final flush failed")
			}
			r.mu.Unlock()
			return
		}
	}
}

// flush writes the buffered rows in one transaction. Caller holds the lock.
func (r *repository) flush() error {
	if len(r.buffer) == 0 {
		return nil
	}

	errFactory := errors.New()

	tx, err := r.db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	for _, row := range r.buffer {
		if _, err := tx.Exec(row.sql, row.args...); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error().Err(rbErr).Msg("Failed to roll back archive transaction")
			}
			return errFactory.Wrap(ErrTransactionFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	logger.Debug().Int("records", len(r.buffer)).Msg("Flushed frames to archive")
	r.buffer = r.buffer[:0]

	return nil
}
