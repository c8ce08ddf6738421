package git

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"

	lserr "github.com/pders01/livesnap/internal/errors"
	"github.com/pterm/pterm"
)

// Result holds the captured output of a finished command.
type Result struct {
	Stdout string
	Stderr string
}

// Runner executes git with a discrete argument list rooted at dir.
// A non-zero exit is always returned as a *errors.GitError; the Result is
// still populated so callers can tell "nothing to show" from real failure.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (Result, error)
}

// CLI is the default Runner backed by the git executable.
type CLI struct {
	Binary string
	Env    []string
	logger *pterm.Logger
}

// NewCLI creates a Runner for the given git binary. An empty binary means "git".
func NewCLI(binary string, logger *pterm.Logger) *CLI {
	if binary == "" {
		binary = "git"
	}
	return &CLI{
		Binary: binary,
		// Stable, non-interactive output regardless of the user's locale
		Env:    []string{"LC_ALL=C", "GIT_TERMINAL_PROMPT=0"},
		logger: logger,
	}
}

// Run implements Runner.
func (c *CLI) Run(ctx context.Context, dir string, args ...string) (Result, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, c.Binary, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	exitCode := 0
	if err != nil {
		exitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
	}

	if c.logger != nil {
		c.logger.Debug("git", c.logger.Args("dir", dir, "args", args, "exit", exitCode))
	}

	if err != nil {
		operation := ""
		if len(args) > 0 {
			operation = args[0]
		}
		return res, lserr.NewGitError(operation, args, dir, exitCode, res.Stderr, err)
	}
	return res, nil
}

// ExitCode extracts the exit code of a failed git invocation, or -1.
func ExitCode(err error) int {
	var gitErr *lserr.GitError
	if errors.As(err, &gitErr) {
		return gitErr.ExitCode
	}
	return -1
}
