package backup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"grocery-store/internal/storage"
)

// StampLayout names the folder of one backup run under the key prefix.
const StampLayout = "20060102T150405Z"

// ErrNotStarted is returned by Start when the manager has no storage to upload to.
var ErrNotStarted = errors.New("backup manager has no storage")

// Manager copies the store files to object storage on an interval.
type Manager interface {
	Start(ctx context.Context) error
	Shutdown()
	Run(ctx context.Context) (string, error)
	List(ctx context.Context) ([]storage.ObjectInfo, error)
}

type Config struct {
	Files         []string
	Interval      time.Duration
	UploadOptions storage.UploadOptions
	// Flush runs before every upload so the files reflect in-memory state.
	Flush  func(ctx context.Context) error
	Logger *logrus.Logger
	Now    func() time.Time
}

type manager struct {
	cfg     Config
	storage storage.Service

	runMu  sync.Mutex
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewManager(cfg Config, storage storage.Service) Manager {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &manager{cfg: cfg, storage: storage}
}

func (m *manager) Start(ctx context.Context) error {
	if m.storage == nil {
		return ErrNotStarted
	}
	m.ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(1)
	go m.loop()

	m.cfg.Logger.Infof("backup manager started, interval: %s", m.cfg.Interval)
	return nil
}

func (m *manager) loop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Run(m.ctx); err != nil {
				m.cfg.Logger.Warnf("scheduled backup: %v", err)
			}
		}
	}
}

// Shutdown stops the schedule and waits for a running upload to finish.
func (m *manager) Shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.cfg.Logger.Info("backup manager stopped")
}

// Run flushes the stores and uploads every file under a fresh timestamped
// prefix. It returns the location of the uploaded backup.
func (m *manager) Run(ctx context.Context) (string, error) {
	if m.storage == nil {
		return "", ErrNotStarted
	}

	m.runMu.Lock()
	defer m.runMu.Unlock()

	if m.cfg.Flush != nil {
		if err := m.cfg.Flush(ctx); err != nil {
			return "", fmt.Errorf("flush stores: %w", err)
		}
	}

	stamp := m.cfg.Now().UTC().Format(StampLayout)
	opts := m.cfg.UploadOptions
	opts.KeyPrefix = joinPrefix(opts.KeyPrefix, stamp)

	logger := m.cfg.Logger.WithField("prefix", opts.KeyPrefix)
	opts.ProgressCallback = func(done, total int64) {
		logger.Debugf("uploaded %d/%d bytes", done, total)
	}

	location, err := m.storage.UploadFiles(ctx, m.cfg.Files, opts)
	if err != nil {
		return "", fmt.Errorf("upload backup: %w", err)
	}
	logger.Infof("backup uploaded to %s", location)
	return location, nil
}

// List returns every object stored under the configured key prefix.
func (m *manager) List(ctx context.Context) ([]storage.ObjectInfo, error) {
	if m.storage == nil {
		return nil, ErrNotStarted
	}
	prefix := strings.Trim(m.cfg.UploadOptions.KeyPrefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return m.storage.ListObjects(ctx, m.cfg.UploadOptions.Bucket, prefix)
}

func joinPrefix(base, stamp string) string {
	base = strings.Trim(base, "/")
	if base == "" {
		return stamp
	}
	return base + "/" + stamp
}
