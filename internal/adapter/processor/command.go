// Package processor turns a job's task into invocations of the external tool.
package processor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/cwygoda/gather/internal/adapter/process"
	"github.com/cwygoda/gather/internal/domain"
)

// Runner launches one external process and waits for it.
type Runner interface {
	Run(ctx context.Context, executable string, args []string, charset string) (process.Output, error)
}

// Layout decides where downloaded files end up.
type Layout struct {
	OutputDir       string
	SeparateFolders bool
	Folder          string
	PreferredFormat string
	ForceOverwrite  bool
	Isolate         bool
}

// TargetDir returns the directory for a download titled title: its own
// folder under OutputDir, or the shared Folder.
func (l Layout) TargetDir(title string) string {
	if l.SeparateFolders {
		return filepath.Join(l.OutputDir, SanitizeName(title))
	}
	if l.Folder == "" {
		return l.OutputDir
	}
	return filepath.Join(l.OutputDir, SanitizeName(l.Folder))
}

// CommandProcessor runs single attempts of FetchInfo and Download.
type CommandProcessor struct {
	runner     Runner
	executable string
	charset    string
	layout     Layout
	logger     *zap.Logger
}

// NewCommandProcessor creates a processor bound to one executable.
func NewCommandProcessor(runner Runner, executable, charset string, layout Layout, logger *zap.Logger) *CommandProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandProcessor{
		runner:     runner,
		executable: executable,
		charset:    charset,
		layout:     layout,
		logger:     logger,
	}
}

// InfoArgs returns the arguments for a metadata query. URLs travel as a single
// argv entry, no shell is involved.
func InfoArgs(url string) []string {
	return []string{"--json", url}
}

// DownloadArgs returns the arguments for downloading url into dir.
func (p *CommandProcessor) DownloadArgs(url, dir string) []string {
	args := []string{"--output-dir", dir}
	if p.layout.PreferredFormat != "" {
		args = append(args, "--format="+p.layout.PreferredFormat)
	}
	if p.layout.ForceOverwrite {
		args = append(args, "--force")
	}
	return append(args, url)
}

// FetchInfo asks the tool for url's metadata.
func (p *CommandProcessor) FetchInfo(ctx context.Context, url string) (domain.Info, error) {
	out, err := p.run(ctx, InfoArgs(url))
	if err != nil {
		return domain.Info{}, err
	}
	return ParseInfo(out.Stdout)
}

// Download fetches url's media into the directory chosen by the layout.
func (p *CommandProcessor) Download(ctx context.Context, url string, info domain.Info) error {
	targetDir := p.layout.TargetDir(info.Title)
	if p.layout.Isolate {
		return p.downloadIsolated(ctx, url, targetDir)
	}
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return fmt.Errorf("create target dir: %w", err)
	}
	_, err := p.run(ctx, p.DownloadArgs(url, targetDir))
	return err
}

func (p *CommandProcessor) run(ctx context.Context, args []string) (process.Output, error) {
	out, err := p.runner.Run(ctx, p.executable, args, p.charset)
	if err != nil {
		return out, err
	}
	if out.ExitCode != 0 {
		return out, &domain.ProcessExitError{Code: out.ExitCode, Stderr: out.Stderr}
	}
	return out, nil
}

// downloadIsolated runs in a temp dir and moves files on success, so a failed
// attempt never leaves partial files in the target directory.
func (p *CommandProcessor) downloadIsolated(ctx context.Context, url, targetDir string) error {
	tempDir, err := os.MkdirTemp("", "gather-download-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	if _, err := p.run(ctx, p.DownloadArgs(url, tempDir)); err != nil {
		return err
	}
	return p.moveFiles(url, tempDir, targetDir)
}

// moveFiles moves files from srcDir to dstDir. Existing files are kept
// unless the layout forces overwriting.
func (p *CommandProcessor) moveFiles(url, srcDir, dstDir string) error {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("create target dir: %w", err)
	}

	var moved []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		src := filepath.Join(srcDir, entry.Name())
		dst := filepath.Join(dstDir, entry.Name())

		if _, err := os.Stat(dst); err == nil && !p.layout.ForceOverwrite {
			p.logger.Info("skipped existing file", zap.String("url", url), zap.String("file", entry.Name()))
			continue
		}

		if err := os.Rename(src, dst); err != nil {
			// Cross-device fallback
			if err := copyFile(src, dst); err != nil {
				return err
			}
			os.Remove(src)
		}
		moved = append(moved, entry.Name())
	}
	p.logger.Info("moved downloaded files",
		zap.String("url", url),
		zap.Strings("files", moved),
		zap.String("dir", dstDir),
	)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// SanitizeName makes title usable as a single path element.
func SanitizeName(title string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, strings.ContainsRune(`<>:"/\|?*`, r):
			return '_'
		}
		return r
	}, title)
	name = strings.Trim(name, " .")
	if name == "" {
		return "untitled"
	}
	return name
}
