package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/cwygoda/gather/internal/domain"
)

// isolate points every XDG and home lookup at a temp dir and clears
// GATHER_* variables.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	for _, kv := range os.Environ() {
		if name, _, _ := strings.Cut(kv, "="); strings.HasPrefix(name, EnvPrefix+"_") {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
	return dir
}

func TestDefaultDBPath(t *testing.T) {
	t.Run("with XDG_CACHE_HOME", func(t *testing.T) {
		t.Setenv("XDG_CACHE_HOME", "/custom/cache")

		path := DefaultDBPath()

		expected := "/custom/cache/gather/gather.db"
		if path != expected {
			t.Errorf("DefaultDBPath() = %q, want %q", path, expected)
		}
	})

	t.Run("without XDG_CACHE_HOME", func(t *testing.T) {
		t.Setenv("XDG_CACHE_HOME", "")

		path := DefaultDBPath()

		if !strings.HasSuffix(path, filepath.Join(".cache", "gather", "gather.db")) {
			t.Errorf("DefaultDBPath() = %q, want suffix .cache/gather/gather.db", path)
		}
	})
}

func TestDefaultOutputDir(t *testing.T) {
	path := DefaultOutputDir()
	if !strings.HasSuffix(path, "Videos") {
		t.Errorf("DefaultOutputDir() = %q, want suffix Videos", path)
	}
}

func TestExpandPath(t *testing.T) {
	home := isolate(t)

	tests := []struct {
		in   string
		want string
	}{
		{"~", home},
		{"~/bin/tool", filepath.Join(home, "bin", "tool")},
		{"/abs/path", "/abs/path"},
		{"rel/path", "rel/path"},
		{"~user/x", "~user/x"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ExpandPath(tt.in); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Concurrency != 1 {
		t.Errorf("Concurrency = %d, want 1", cfg.Concurrency)
	}
	if cfg.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.MaxAttempts)
	}
	if cfg.RetryDelay != 0 {
		t.Errorf("RetryDelay = %v, want 0", cfg.RetryDelay)
	}
	if !cfg.SeparateFolders || !cfg.Isolate {
		t.Errorf("SeparateFolders, Isolate = %v, %v, want true, true", cfg.SeparateFolders, cfg.Isolate)
	}
	if cfg.OutputDir != filepath.Join(home, "Videos") {
		t.Errorf("OutputDir = %q, want %q", cfg.OutputDir, filepath.Join(home, "Videos"))
	}
	if cfg.DBPath != filepath.Join(home, "cache", "gather", "gather.db") {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.Listen != ":8080" {
		t.Errorf("Listen = %q, want :8080", cfg.Listen)
	}
	if cfg.Executable != "" {
		t.Errorf("Executable = %q, want empty", cfg.Executable)
	}
}

func TestLoad_Precedence(t *testing.T) {
	home := isolate(t)

	path := filepath.Join(home, "gather.toml")
	content := `
executable = "~/bin/yt-dlp"
concurrency = 4
max_attempts = 5
retry_delay = "2s"
charset = "gbk"
output_dir = "/media"
separate_folders = false
folder = "inbox"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GATHER_MAX_ATTEMPTS", "7")
	t.Setenv("GATHER_CONCURRENCY", "6")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("concurrency", 1, "")
	flags.Int("max-attempts", 3, "")
	flags.String("charset", "", "")
	if err := flags.Parse([]string{"--concurrency=2"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, flags)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Concurrency != 2 {
		t.Errorf("Concurrency = %d, want 2 from flag", cfg.Concurrency)
	}
	if cfg.MaxAttempts != 7 {
		t.Errorf("MaxAttempts = %d, want 7 from env", cfg.MaxAttempts)
	}
	if cfg.Charset != "gbk" {
		t.Errorf("Charset = %q, want gbk from file", cfg.Charset)
	}
	if cfg.RetryDelay != 2*time.Second {
		t.Errorf("RetryDelay = %v, want 2s", cfg.RetryDelay)
	}
	if cfg.Executable != filepath.Join(home, "bin", "yt-dlp") {
		t.Errorf("Executable = %q, want expanded home path", cfg.Executable)
	}
	if cfg.SeparateFolders {
		t.Error("SeparateFolders = true, want false from file")
	}
	if cfg.Folder != "inbox" || cfg.OutputDir != "/media" {
		t.Errorf("Folder, OutputDir = %q, %q", cfg.Folder, cfg.OutputDir)
	}
}

func TestLoad_DefaultConfigFile(t *testing.T) {
	isolate(t)

	if err := Save(DefaultConfigPath(), Config{Concurrency: 3, MaxAttempts: 2, Listen: ":9000"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Concurrency != 3 || cfg.MaxAttempts != 2 || cfg.Listen != ":9000" {
		t.Errorf("Load() = %+v, want values from saved file", cfg)
	}
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	home := isolate(t)

	_, err := Load(filepath.Join(home, "missing.toml"), nil)
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("Load() error = %v, want ErrConfiguration", err)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"zero concurrency", map[string]string{"GATHER_CONCURRENCY": "0"}},
		{"zero attempts", map[string]string{"GATHER_MAX_ATTEMPTS": "0"}},
		{"unknown charset", map[string]string{"GATHER_CHARSET": "klingon"}},
		{"negative delay", map[string]string{"GATHER_RETRY_DELAY": "-1s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load("", nil)
			if !errors.Is(err, domain.ErrConfiguration) {
				t.Errorf("Load() error = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "nested", "config.toml")

	want := Default()
	want.Executable = "/usr/local/bin/yt-dlp"
	want.RetryDelay = 1500 * time.Millisecond
	want.PreferredFormat = "mp4"
	want.ForceOverwrite = true

	if err := Save(path, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}

	got, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if *got != want {
		t.Errorf("Load() = %+v, want %+v", *got, want)
	}
}
