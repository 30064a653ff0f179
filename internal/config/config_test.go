package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, key := range []string{"STORE_BACKEND", "SESSION_KEY", "STUDENTS_KEY", "ATTENDANCE_KEY", "ACCESS_TTL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "sqlite", cfg.StoreBackend)
	assert.Equal(t, "auth_user", cfg.SessionKey)
	assert.Equal(t, "attendance_students", cfg.StudentsKey)
	assert.Equal(t, "attendance_records", cfg.AttendanceKey)
	assert.Equal(t, 12*time.Hour, cfg.AccessTTL)
	assert.Empty(t, cfg.Warnings)
}

func TestLoadOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("STORE_BACKEND", "Redis")
	t.Setenv("ACCESS_TTL", "30m")
	t.Setenv("STUDENTS_KEY", "roster")

	cfg := Load()
	assert.Equal(t, "redis", cfg.StoreBackend)
	assert.Equal(t, 30*time.Minute, cfg.AccessTTL)
	assert.Equal(t, "roster", cfg.StudentsKey)
}

func TestLoadInvalidDurationFallsBack(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ACCESS_TTL", "soon")

	cfg := Load()
	assert.Equal(t, 12*time.Hour, cfg.AccessTTL)
	require.Len(t, cfg.Warnings, 1)
	assert.Contains(t, cfg.Warnings[0], "ACCESS_TTL")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ROLLCALL_DOTENV_CHECK=memory\n"), 0o600))
	chdir(t, dir)
	t.Setenv("STORE_BACKEND", "")
	t.Cleanup(func() { os.Unsetenv("ROLLCALL_DOTENV_CHECK") })

	Load()
	assert.Equal(t, "memory", os.Getenv("ROLLCALL_DOTENV_CHECK"))
}

// chdir changes the working directory for the duration of the test,
// standing in for testing.T.Chdir (Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
