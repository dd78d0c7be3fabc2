package process

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwygoda/gather/internal/domain"
)

func TestResolve_DirectoryPicksFirstExecutable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("docs"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b-tool"), []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a-tool.exe"), []byte("MZ"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "0-subdir"), 0o755))

	got, err := Resolve(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a-tool.exe"), got)
}

func TestResolve_ExecutableFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tool")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))

	got, err := Resolve(path)
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestResolve_Failures(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(plain, []byte("x"), 0o644))
	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.Mkdir(empty, 0o755))

	tests := []struct {
		name string
		path string
		want error
	}{
		{"unset", "", domain.ErrExecutableNotSet},
		{"plain file", plain, domain.ErrNoExecutableFound},
		{"empty directory", empty, domain.ErrNoExecutableFound},
		{"missing path", filepath.Join(dir, "missing", "tool"), domain.ErrNoExecutableFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.path)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestResolve_BareNameUsesPath(t *testing.T) {
	got, err := Resolve("sh")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
}

func TestIsExecutable(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]struct {
		mode os.FileMode
		want bool
	}{
		"tool":      {0o755, true},
		"user-only": {0o700, true},
		"data.bin":  {0o644, false},
		"WIN.EXE":   {0o644, true},
	}
	for name, c := range cases {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, nil, c.mode))
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, c.want, IsExecutable(info), name)
	}

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.False(t, IsExecutable(info), "directories are never executable")
}
