// Package process launches the external downloader and collects its output.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/cwygoda/gather/internal/domain"
)

// DefaultWaitDelay bounds how long output pipes may stay open after the
// process has been killed.
const DefaultWaitDelay = 5 * time.Second

// Output is what a finished process produced.
type Output struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner starts one process per call and waits for it.
type Runner struct {
	logger    *zap.Logger
	waitDelay time.Duration
}

// NewRunner creates a Runner. A nil logger disables logging.
func NewRunner(logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger, waitDelay: DefaultWaitDelay}
}

// Run launches executable with args and returns after the process has exited
// and both output streams reached EOF. A non-zero exit is not an error here;
// callers inspect Output.ExitCode, which is -1 for a process killed by a
// signal or a wait that failed otherwise. Errors are *domain.LaunchError,
// *domain.DecodeError or, once ctx is done, *domain.InterruptedError.
//
// charset selects the decoding of both streams; empty means the bytes are
// taken as they are.
func (r *Runner) Run(ctx context.Context, executable string, args []string, charset string) (Output, error) {
	enc, err := LookupCharset(charset)
	if err != nil {
		return Output{}, &domain.DecodeError{Charset: charset, Err: err}
	}

	// Non-file writers make os/exec drain stdout and stderr on separate
	// goroutines, so a tool blocking on a full stderr pipe cannot stall stdout.
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, executable, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = r.waitDelay

	start := time.Now()
	if err := cmd.Start(); err != nil {
		if ctx.Err() != nil {
			return Output{}, &domain.InterruptedError{Err: ctx.Err()}
		}
		return Output{}, &domain.LaunchError{Executable: executable, Err: err}
	}
	r.logger.Debug("process started",
		zap.String("executable", executable),
		zap.Strings("args", args),
		zap.Int("pid", cmd.Process.Pid),
	)

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		return Output{}, &domain.InterruptedError{Err: ctx.Err()}
	}

	out := Output{}
	if out.Stdout, err = decode(enc, stdout.Bytes()); err != nil {
		return Output{}, &domain.DecodeError{Charset: charset, Err: fmt.Errorf("stdout: %w", err)}
	}
	if out.Stderr, err = decode(enc, stderr.Bytes()); err != nil {
		return Output{}, &domain.DecodeError{Charset: charset, Err: fmt.Errorf("stderr: %w", err)}
	}

	// Death by signal and broken waits surface as exit code -1 so they count
	// against the retry budget like any other failed exit.
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			out.ExitCode = exitErr.ExitCode()
		} else {
			out.ExitCode = -1
		}
		if out.ExitCode < 0 && strings.TrimSpace(out.Stderr) == "" {
			out.Stderr = waitErr.Error()
		}
	}

	r.logger.Debug("process exited",
		zap.String("executable", executable),
		zap.Int("exit_code", out.ExitCode),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

// LookupCharset resolves a charset label such as "gbk" or "utf-8". An empty
// label returns a nil encoding.
func LookupCharset(charset string) (encoding.Encoding, error) {
	if charset == "" {
		return nil, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", charset, err)
	}
	return enc, nil
}

func decode(enc encoding.Encoding, b []byte) (string, error) {
	if enc == nil {
		return string(b), nil
	}
	if name, _ := htmlindex.Name(enc); name == "utf-8" {
		if !utf8.Valid(b) {
			return "", errors.New("invalid UTF-8 sequence")
		}
		return string(b), nil
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	// Decoders substitute U+FFFD for bytes the charset cannot map.
	if bytes.ContainsRune(out, utf8.RuneError) && !encodesReplacement(enc, b) {
		return "", errors.New("invalid byte sequence for charset")
	}
	return string(out), nil
}

// encodesReplacement reports whether b holds U+FFFD as encoded by enc.
func encodesReplacement(enc encoding.Encoding, b []byte) bool {
	rep, err := enc.NewEncoder().Bytes([]byte(string(utf8.RuneError)))
	if err != nil || len(rep) == 0 {
		return false
	}
	return bytes.Contains(b, rep)
}
