package backup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grocery-store/internal/storage"
)

type fakeStorage struct {
	mu      sync.Mutex
	uploads []storage.UploadOptions
	paths   [][]string
	err     error
	objects []storage.ObjectInfo
	listed  string
}

func (f *fakeStorage) UploadFiles(ctx context.Context, paths []string, opts storage.UploadOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.uploads = append(f.uploads, opts)
	f.paths = append(f.paths, paths)
	return "s3://" + opts.Bucket + "/" + opts.KeyPrefix, nil
}

func (f *fakeStorage) ListObjects(ctx context.Context, bucket, prefix string) ([]storage.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listed = bucket + ":" + prefix
	return f.objects, nil
}

func (f *fakeStorage) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
}

func TestManager_Run(t *testing.T) {
	store := &fakeStorage{}
	logger, hook := logtest.NewNullLogger()
	flushed := 0

	m := NewManager(Config{
		Files:         []string{"data/products.csv", "data/users.csv", "data/orders.csv"},
		UploadOptions: storage.UploadOptions{Bucket: "shop", KeyPrefix: "/backups/"},
		Flush: func(ctx context.Context) error {
			flushed++
			return nil
		},
		Logger: logger,
		Now:    fixedNow,
	}, store)

	location, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "s3://shop/backups/20260304T050607Z", location)
	assert.Equal(t, 1, flushed)

	require.Len(t, store.uploads, 1)
	assert.Equal(t, "backups/20260304T050607Z", store.uploads[0].KeyPrefix)
	assert.NotNil(t, store.uploads[0].ProgressCallback)
	assert.Len(t, store.paths[0], 3)
	assert.Equal(t, "backup uploaded to s3://shop/backups/20260304T050607Z", hook.LastEntry().Message)
}

func TestManager_RunStopsOnFlushError(t *testing.T) {
	store := &fakeStorage{}
	logger, _ := logtest.NewNullLogger()

	m := NewManager(Config{
		UploadOptions: storage.UploadOptions{Bucket: "shop"},
		Flush: func(ctx context.Context) error {
			return errors.New("disk full")
		},
		Logger: logger,
	}, store)

	_, err := m.Run(context.Background())
	assert.EqualError(t, err, "flush stores: disk full")
	assert.Zero(t, store.count())
}

func TestManager_RunWrapsUploadError(t *testing.T) {
	uploadErr := errors.New("access denied")
	logger, _ := logtest.NewNullLogger()
	m := NewManager(Config{Logger: logger}, &fakeStorage{err: uploadErr})

	_, err := m.Run(context.Background())
	assert.ErrorIs(t, err, uploadErr)
}

func TestManager_ScheduledRuns(t *testing.T) {
	store := &fakeStorage{}
	logger, _ := logtest.NewNullLogger()

	m := NewManager(Config{
		Interval:      10 * time.Millisecond,
		UploadOptions: storage.UploadOptions{Bucket: "shop"},
		Logger:        logger,
	}, store)

	require.NoError(t, m.Start(context.Background()))
	assert.Eventually(t, func() bool { return store.count() >= 2 }, time.Second, 5*time.Millisecond)
	m.Shutdown()

	after := store.count()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, store.count())
}

func TestManager_List(t *testing.T) {
	store := &fakeStorage{objects: []storage.ObjectInfo{{Key: "backups/20260304T050607Z/users.csv", Size: 42}}}
	logger, _ := logtest.NewNullLogger()
	m := NewManager(Config{UploadOptions: storage.UploadOptions{Bucket: "shop", KeyPrefix: "backups"}, Logger: logger}, store)

	objects, err := m.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, objects, 1)
	assert.Equal(t, "shop:backups/", store.listed)
}

func TestManager_WithoutStorage(t *testing.T) {
	m := NewManager(Config{}, nil)
	assert.ErrorIs(t, m.Start(context.Background()), ErrNotStarted)

	_, err := m.Run(context.Background())
	assert.ErrorIs(t, err, ErrNotStarted)
}
