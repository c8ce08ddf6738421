package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Category errors. Every failure returned by livesnap matches exactly one of
// these through errors.Is.
var (
	// ErrProcessExecution indicates an external command exited non-zero or could not be spawned
	ErrProcessExecution = errors.New("process execution failed")

	// ErrFilesystem indicates a read, write or append of a managed file failed
	ErrFilesystem = errors.New("filesystem operation failed")

	// ErrValidation indicates the caller supplied unusable input
	ErrValidation = errors.New("validation failed")

	// ErrStateConflict indicates the on-disk state does not allow the operation
	ErrStateConflict = errors.New("state conflict")
)

// Specific failures, each wrapping one category.
var (
	ErrEmptyMessage      = fmt.Errorf("%w: version message is empty", ErrValidation)
	ErrNoProject         = fmt.Errorf("%w: no project folder selected", ErrValidation)
	ErrNoMarker          = fmt.Errorf("%w: folder does not contain a project file", ErrValidation)
	ErrInvalidIdentifier = fmt.Errorf("%w: invalid version identifier", ErrValidation)
	ErrUnknownSnapshot   = fmt.Errorf("%w: unknown version", ErrValidation)

	ErrNotInitialized  = fmt.Errorf("%w: project is not under version control", ErrStateConflict)
	ErrDirtyTree       = fmt.Errorf("%w: working directory has uncommitted changes", ErrStateConflict)
	ErrNothingToCommit = fmt.Errorf("%w: nothing changed since the last version", ErrStateConflict)
	ErrLocked          = fmt.Errorf("%w: another operation is running on this project", ErrStateConflict)
)

// Wrap wraps an error with a message for better context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted message for better context.
func Wrapf(err error, format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether target is in err's chain.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Kind is the coarse failure category a caller renders to the user.
type Kind int

const (
	KindUnknown Kind = iota
	KindProcess
	KindFilesystem
	KindValidation
	KindStateConflict
)

func (k Kind) String() string {
	switch k {
	case KindProcess:
		return "process"
	case KindFilesystem:
		return "filesystem"
	case KindValidation:
		return "validation"
	case KindStateConflict:
		return "state-conflict"
	default:
		return "unknown"
	}
}

// KindOf classifies err. A nil error is KindUnknown.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrStateConflict):
		return KindStateConflict
	case errors.Is(err, ErrFilesystem):
		return KindFilesystem
	case errors.Is(err, ErrProcessExecution):
		return KindProcess
	default:
		return KindUnknown
	}
}

// GitError represents a failed git invocation. ExitCode is -1 when the
// process could not be started at all.
type GitError struct {
	Operation string
	Args      []string
	Dir       string
	ExitCode  int
	Stderr    string
	Err       error
}

// Error implements the error interface.
func (e *GitError) Error() string {
	msg := fmt.Sprintf("git %s failed", e.Operation)
	if e.ExitCode >= 0 {
		msg = fmt.Sprintf("%s (exit %d)", msg, e.ExitCode)
	}
	if out := strings.TrimSpace(e.Stderr); out != "" {
		msg = fmt.Sprintf("%s: %s", msg, out)
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the category and the underlying cause.
func (e *GitError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrProcessExecution}
	}
	return []error{ErrProcessExecution, e.Err}
}

// NewGitError creates a new GitError.
func NewGitError(operation string, args []string, dir string, exitCode int, stderr string, err error) *GitError {
	return &GitError{
		Operation: operation,
		Args:      args,
		Dir:       dir,
		ExitCode:  exitCode,
		Stderr:    stderr,
		Err:       err,
	}
}

// FilesystemError represents a failed operation on a managed file.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() []error {
	return []error{ErrFilesystem, e.Err}
}

// NewFilesystemError creates a new FilesystemError.
func NewFilesystemError(op, path string, err error) *FilesystemError {
	return &FilesystemError{Op: op, Path: path, Err: err}
}

// DirtyTreeError carries the files that block an operation requiring a clean tree.
type DirtyTreeError struct {
	Files []string
}

func (e *DirtyTreeError) Error() string {
	return fmt.Sprintf("%v (%d file(s))", ErrDirtyTree, len(e.Files))
}

func (e *DirtyTreeError) Unwrap() error {
	return ErrDirtyTree
}

// StepError annotates which step of a multi-step operation failed, so a
// caller can tell partial success from total failure.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// AtStep wraps err in a StepError. A nil err stays nil.
func AtStep(step string, err error) error {
	if err == nil {
		return nil
	}
	return &StepError{Step: step, Err: err}
}

// StepOf returns the outermost failing step recorded in err, or "".
func StepOf(err error) string {
	var se *StepError
	if errors.As(err, &se) {
		return se.Step
	}
	return ""
}

// FilesOf returns the conflicting files recorded in err, if any.
func FilesOf(err error) []string {
	var de *DirtyTreeError
	if errors.As(err, &de) {
		return de.Files
	}
	return nil
}
