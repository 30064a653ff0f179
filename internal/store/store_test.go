package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStorage(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key returns nil", func(t *testing.T) {
		val, err := s.Get(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, val)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "attendance_students", []byte(`[{"id":"a"}]`)))
		val, err := s.Get(ctx, "attendance_students")
		require.NoError(t, err)
		assert.Equal(t, `[{"id":"a"}]`, string(val))
	})

	t.Run("set overwrites", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "attendance_records", []byte(`[]`)))
		require.NoError(t, s.Set(ctx, "attendance_records", []byte(`[{"id":"b"}]`)))
		val, err := s.Get(ctx, "attendance_records")
		require.NoError(t, err)
		assert.Equal(t, `[{"id":"b"}]`, string(val))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "auth_user", []byte(`{"id":"u1"}`)))
		require.NoError(t, s.Delete(ctx, "auth_user"))
		val, err := s.Get(ctx, "auth_user")
		require.NoError(t, err)
		assert.Nil(t, val)
		require.NoError(t, s.Delete(ctx, "auth_user"))
	})
}

func TestMemory(t *testing.T) {
	exerciseStorage(t, NewMemory())
}

func TestMemoryCopiesValues(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	buf := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", buf))
	buf[0] = 'x'

	val, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(val))

	val[1] = 'y'
	again, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}

func TestSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "rollcall.db")
	db, err := NewSQLite(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	exerciseStorage(t, db)

	require.NoError(t, db.Set(ctx, "persisted", []byte("yes")))
	require.NoError(t, db.Close())

	reopened, err := NewSQLite(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()
	val, err := reopened.Get(ctx, "persisted")
	require.NoError(t, err)
	assert.Equal(t, "yes", string(val))
}

func TestPostgres(t *testing.T) {
	url := os.Getenv("ROLLCALL_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("ROLLCALL_TEST_DATABASE_URL not set")
	}
	db, err := NewDB(context.Background(), url)
	require.NoError(t, err)
	defer db.Close()
	exerciseStorage(t, db)
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("ROLLCALL_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ROLLCALL_TEST_REDIS_ADDR not set")
	}
	r := NewRedis(addr, "rollcall-test:"+uuid.NewString()+":")
	defer r.Close()
	require.True(t, r.Healthy(context.Background()))
	exerciseStorage(t, r)
}
