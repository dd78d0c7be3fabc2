package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTarget(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantURL string
		wantErr error
	}{
		{name: "https URL", raw: "https://example.com/video", wantURL: "https://example.com/video"},
		{name: "trims whitespace", raw: "  http://example.com/a \n", wantURL: "http://example.com/a"},
		{name: "not a URL", raw: "not a url", wantErr: ErrInvalidURL},
		{name: "empty", raw: "", wantErr: ErrInvalidURL},
		{name: "unsupported scheme", raw: "ftp://example.com/file", wantErr: ErrInvalidURL},
		{name: "missing host", raw: "https:///path", wantErr: ErrInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewTarget(tt.raw)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, got.URL())
		})
	}
}

func TestTarget_EqualIgnoresTitle(t *testing.T) {
	a := mustTarget(t, "https://example.com/a")
	b := mustTarget(t, "https://example.com/a")
	b.Title = "Resolved title"

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(mustTarget(t, "https://example.com/b")))
}

func mustTarget(t *testing.T, raw string) Target {
	t.Helper()
	target, err := NewTarget(raw)
	require.NoError(t, err)
	return target
}
