package storage_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hilayankonsky/movemix/internal/config"
	"github.com/hilayankonsky/movemix/internal/storage"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// INFO: https://github.com/go-redis/redis/issues/1029
		goleak.IgnoreTopFunction(
			"github.com/go-redis/redis/v8/internal/pool.(*ConnPool).reaper",
		),
	)
}

const testKey = "movemix:v1"

func testPersistenceContract(t *testing.T, p storage.Persistence) {
	t.Helper()
	ctx := context.Background()

	_, err := p.Get(ctx, testKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, p.Set(ctx, testKey, []byte(`{"sessions":[]}`)))
	got, err := p.Get(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, `{"sessions":[]}`, string(got))

	require.NoError(t, p.Set(ctx, testKey, []byte(`{"sessions":[1]}`)))
	got, err = p.Get(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, `{"sessions":[1]}`, string(got))

	require.NoError(t, p.Remove(ctx, testKey))
	_, err = p.Get(ctx, testKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// removing twice is fine
	require.NoError(t, p.Remove(ctx, testKey))
}

func TestMemory(t *testing.T) {
	testPersistenceContract(t, storage.NewMemory())
}

func TestMemory_ValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()

	value := []byte("abc")
	require.NoError(t, m.Set(ctx, testKey, value))
	value[0] = 'x'

	got, err := m.Get(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	got[1] = 'y'
	again, err := m.Get(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}

func TestMemory_Concurrent(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Set(ctx, testKey, []byte("v"))
			_, _ = m.Get(ctx, testKey)
		}()
	}
	wg.Wait()

	got, err := m.Get(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
}

func TestDisk(t *testing.T) {
	disk, err := storage.NewDisk(t.TempDir())
	require.NoError(t, err)
	testPersistenceContract(t, disk)
}

func TestDisk_FilePathIsSafe(t *testing.T) {
	root := t.TempDir()
	disk, err := storage.NewDisk(root)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "movemix_v1.json"), disk.FilePath("movemix:v1"))
	assert.Equal(t, filepath.Join(root, ".._.._etc_passwd.json"), disk.FilePath("../../etc/passwd"))
}

func TestDisk_LeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	disk, err := storage.NewDisk(root)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, disk.Set(ctx, testKey, []byte("{}")))
	}

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "movemix_v1.json", entries[0].Name())
}

func TestDisk_NewDiskErrors(t *testing.T) {
	_, err := storage.NewDisk("")
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	_, err = storage.NewDisk(file)
	assert.Error(t, err)
}

func TestRedis_Get(t *testing.T) {
	ctx := context.Background()
	rdb, mock := redismock.NewClientMock()
	defer rdb.Close()

	r := storage.NewRedis(rdb)

	mock.ExpectGet(testKey).RedisNil()
	_, err := r.Get(ctx, testKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	mock.ExpectGet(testKey).SetVal(`{"sessions":[]}`)
	got, err := r.Get(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, `{"sessions":[]}`, string(got))

	mock.ExpectGet(testKey).SetErr(errors.New("connection refused"))
	_, err = r.Get(ctx, testKey)
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedis_SetAndRemove(t *testing.T) {
	ctx := context.Background()
	rdb, mock := redismock.NewClientMock()
	defer rdb.Close()

	r := storage.NewRedis(rdb)
	value := []byte(`{"sessions":[]}`)

	mock.ExpectSet(testKey, value, 0).SetVal("OK")
	require.NoError(t, r.Set(ctx, testKey, value))

	mock.ExpectDel(testKey).SetVal(1)
	require.NoError(t, r.Remove(ctx, testKey))

	mock.ExpectDel(testKey).SetErr(errors.New("boom"))
	assert.Error(t, r.Remove(ctx, testKey))

	assert.NoError(t, mock.ExpectationsWereMet())
}

// countingPersistence counts backend reads, so cache hits can be observed.
type countingPersistence struct {
	storage.Persistence
	gets int
	fail error
}

func (c *countingPersistence) Get(ctx context.Context, key string) ([]byte, error) {
	c.gets++
	return c.Persistence.Get(ctx, key)
}

func (c *countingPersistence) Set(ctx context.Context, key string, value []byte) error {
	if c.fail != nil {
		return c.fail
	}
	return c.Persistence.Set(ctx, key, value)
}

func TestCached(t *testing.T) {
	testPersistenceContract(t, storage.NewCached(storage.NewMemory(), 1, 0))
}

func TestCached_ReadsThrough(t *testing.T) {
	ctx := context.Background()
	backend := &countingPersistence{Persistence: storage.NewMemory()}
	require.NoError(t, backend.Persistence.Set(ctx, testKey, []byte("doc")))

	cached := storage.NewCached(backend, 1, 0)
	for i := 0; i < 3; i++ {
		got, err := cached.Get(ctx, testKey)
		require.NoError(t, err)
		assert.Equal(t, "doc", string(got))
	}
	assert.Equal(t, 1, backend.gets)

	require.NoError(t, cached.Set(ctx, testKey, []byte("doc2")))
	got, err := cached.Get(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, "doc2", string(got))
	assert.Equal(t, 1, backend.gets)
}

func TestCached_FailedWriteDropsEntry(t *testing.T) {
	ctx := context.Background()
	backend := &countingPersistence{Persistence: storage.NewMemory()}
	cached := storage.NewCached(backend, 1, 0)

	require.NoError(t, cached.Set(ctx, testKey, []byte("v1")))
	backend.fail = errors.New("disk full")
	require.Error(t, cached.Set(ctx, testKey, []byte("v2")))

	got, err := cached.Get(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(got))
	assert.Equal(t, 1, backend.gets, "dropped entry is re-read from the backend")
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	b, err := storage.Open(ctx, storage.OpenParams{
		Config: &config.Config{StorageBackend: config.BackendMemory},
	})
	require.NoError(t, err)
	assert.IsType(t, &storage.Memory{}, b.Persistence)
	assert.Nil(t, b.Redis)
	assert.NoError(t, b.Close())

	b, err = storage.Open(ctx, storage.OpenParams{
		Config: &config.Config{StorageBackend: config.BackendFile, DataFilePath: filepath.Join(t.TempDir(), "data")},
	})
	require.NoError(t, err)
	assert.IsType(t, &storage.Disk{}, b.Persistence)
	assert.NoError(t, b.Close())

	_, err = storage.Open(ctx, storage.OpenParams{
		Config: &config.Config{StorageBackend: "floppy"},
	})
	assert.Error(t, err)
}
