package xrotate_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xtel/pkg/observability/xrotate"
)

func TestNewLumberjack_Validation(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "app.log")

	tests := []struct {
		name string
		file string
		opts []xrotate.Option
		want error
	}{
		{"empty filename", "", nil, xrotate.ErrEmptyFilename},
		{"zero size", file, []xrotate.Option{xrotate.WithMaxSize(0)}, xrotate.ErrInvalidMaxSize},
		{"huge size", file, []xrotate.Option{xrotate.WithMaxSize(20000)}, xrotate.ErrInvalidMaxSize},
		{"negative backups", file, []xrotate.Option{xrotate.WithMaxBackups(-1)}, xrotate.ErrInvalidMaxBackups},
		{"negative age", file, []xrotate.Option{xrotate.WithMaxAge(-1)}, xrotate.ErrInvalidMaxAge},
		{"no cleanup", file, []xrotate.Option{xrotate.WithMaxBackups(0), xrotate.WithMaxAge(0)}, xrotate.ErrNoCleanupPolicy},
		{"setuid bit", file, []xrotate.Option{xrotate.WithFileMode(os.ModeSetuid | 0o644)}, xrotate.ErrInvalidFileMode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := xrotate.NewLumberjack(tt.file, tt.opts...)
			assert.Nil(t, r)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLumberjack_WriteRotateClose(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "nested", "app.log")

	r, err := xrotate.NewLumberjack(file, xrotate.WithCompress(false), xrotate.WithMaxSize(1))
	require.NoError(t, err)

	_, err = r.Write([]byte("first\n"))
	require.NoError(t, err)
	require.NoError(t, r.Rotate())
	_, err = r.Write([]byte("second\n"))
	require.NoError(t, err)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(file))
	require.NoError(t, err)
	assert.Len(t, entries, 2, "current file plus one backup")

	require.NoError(t, r.Close())
	assert.ErrorIs(t, r.Close(), xrotate.ErrClosed)
	_, err = r.Write([]byte("late"))
	assert.ErrorIs(t, err, xrotate.ErrClosed)
	assert.ErrorIs(t, r.Rotate(), xrotate.ErrClosed)
}

func TestLumberjack_FileMode(t *testing.T) {
	file := filepath.Join(t.TempDir(), "mode.log")
	r, err := xrotate.NewLumberjack(file, xrotate.WithFileMode(0o644))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	_, err = r.Write([]byte("x\n"))
	require.NoError(t, err)

	info, err := os.Stat(file)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}
