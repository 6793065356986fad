package db

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/goran-ethernal/TokenIndexor/internal/common"
	"github.com/goran-ethernal/TokenIndexor/internal/logger"
	"github.com/goran-ethernal/TokenIndexor/pkg/config"
)

// OperationLocker is held (shared) by every open Session.
type OperationLocker interface {
	AcquireOperationLock() func()
}

type noopLocker struct{}

func (noopLocker) AcquireOperationLock() func() { return func() {} }

// Maintenance periodically checkpoints the sqlite WAL. Checkpoints take the
// operation lock exclusively, so they never run while a session is open.
type Maintenance struct {
	db     *DB
	path   string
	config config.MaintenanceConfig
	log    *logger.Logger

	opLock sync.RWMutex
}

// NewMaintenance returns nil when maintenance does not apply: no config,
// disabled, or a non-sqlite backend.
func NewMaintenance(d *DB, cfg config.DatabaseConfig, mcfg *config.MaintenanceConfig, log *logger.Logger) *Maintenance {
	if mcfg == nil || !mcfg.Enabled || !d.IsSQLite() {
		return nil
	}

	m := &Maintenance{db: d, path: cfg.Path, config: *mcfg, log: log}
	d.SetOperationLocker(m)
	return m
}

// AcquireOperationLock acquires the shared side of the lock and returns its release.
func (m *Maintenance) AcquireOperationLock() func() {
	m.opLock.RLock()
	return m.opLock.RUnlock
}

// Run checkpoints every CheckInterval until ctx is cancelled.
func (m *Maintenance) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.config.CheckInterval.Duration)
	defer ticker.Stop()

	m.log.Infof("maintenance started, interval %s, mode %s", m.config.CheckInterval, m.config.WALCheckpointMode)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := m.Checkpoint(ctx); err != nil {
				m.log.Warnf("maintenance failed: %v", err)
			}
		}
	}
}

// Checkpoint runs one WAL checkpoint with exclusive access.
func (m *Maintenance) Checkpoint(ctx context.Context) error {
	m.opLock.Lock()
	defer m.opLock.Unlock()

	start := time.Now()
	defer func() { maintenanceDurationLog(time.Since(start)) }()

	var mode string
	if err := m.db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
		maintenanceOutcomeInc("error")
		return Wrap("journal_mode", err)
	}
	if !strings.EqualFold(mode, "wal") {
		m.log.Debugf("journal mode %s, skipping WAL checkpoint", mode)
		maintenanceOutcomeInc("skipped")
		return nil
	}

	var busy, logFrames, checkpointed int
	stmt := fmt.Sprintf("PRAGMA wal_checkpoint(%s)", m.config.WALCheckpointMode)
	if err := m.db.QueryRowContext(ctx, stmt).Scan(&busy, &logFrames, &checkpointed); err != nil {
		maintenanceOutcomeInc("error")
		return Wrap("wal_checkpoint", err)
	}

	maintenanceOutcomeInc("success")
	m.log.Infof("WAL checkpoint complete - mode: %s, busy: %d, log_frames: %d, checkpointed: %d",
		m.config.WALCheckpointMode, busy, logFrames, checkpointed)

	if size, err := FileSize(m.path); err == nil {
		dbSizeLog(size)
		m.log.Debugf("database size %d MB", common.BytesToMB(uint64(size)))
	}

	return nil
}

// FileSize returns the size of the database file plus its -wal and -shm siblings.
func FileSize(path string) (int64, error) {
	var total int64
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) && p != path {
				continue
			}
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}
