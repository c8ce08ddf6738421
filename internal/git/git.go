package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	lserr "github.com/pders01/livesnap/internal/errors"
)

// MetadataDir is the repository marker directory inside a project folder.
const MetadataDir = ".git"

var commitIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{4,64}$`)

// HasMetadataDir reports whether dir already holds a repository. It is
// queried on every call and never cached.
func HasMetadataDir(dir string) (bool, error) {
	info, err := os.Stat(filepath.Join(dir, MetadataDir))
	if err == nil {
		return info.IsDir(), nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, lserr.NewFilesystemError("stat", filepath.Join(dir, MetadataDir), err)
}

// ValidCommitID reports whether id looks like an abbreviated or full commit hash.
func ValidCommitID(id string) bool {
	return commitIDPattern.MatchString(id)
}

// Repo runs git commands against one working directory.
type Repo struct {
	dir string
	run Runner
}

// Open returns a Repo for dir. It does not touch the disk.
func Open(run Runner, dir string) *Repo {
	return &Repo{dir: dir, run: run}
}

// Dir returns the working directory
func (r *Repo) Dir() string {
	return r.dir
}

// Init creates an empty repository
func (r *Repo) Init(ctx context.Context) error {
	_, err := r.run.Run(ctx, r.dir, "init", "--quiet")
	return err
}

// SetConfig writes a key into the repository's local config
func (r *Repo) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.run.Run(ctx, r.dir, "config", "--local", key, value)
	return err
}

// ConfigPath returns the path of the repository's local config file
func (r *Repo) ConfigPath() string {
	return filepath.Join(r.dir, MetadataDir, "config")
}

// AddAll stages every change in the working tree, including deletions
func (r *Repo) AddAll(ctx context.Context) error {
	_, err := r.run.Run(ctx, r.dir, "add", "--all")
	return err
}

// Commit records the staged changes with message stored verbatim. The
// message is passed as a single argument and never interpreted by a shell.
// Git terminates -m messages with a newline only when one is missing, so it
// is always added here and readers strip exactly one.
func (r *Repo) Commit(ctx context.Context, message string) error {
	_, err := r.run.Run(ctx, r.dir, "commit", "--quiet", "--no-verify", "--cleanup=verbatim", "-m", message+"\n")
	return err
}

// Head returns the hash of HEAD. ok is false when the repository has no
// commits yet, which is not an error.
func (r *Repo) Head(ctx context.Context) (hash string, ok bool, err error) {
	res, err := r.run.Run(ctx, r.dir, "rev-parse", "--verify", "--quiet", "HEAD")
	if err != nil {
		// --quiet turns "no such ref" into a silent exit 1
		if ExitCode(err) == 1 && strings.TrimSpace(res.Stderr) == "" {
			return "", false, nil
		}
		return "", false, err
	}
	return strings.TrimSpace(res.Stdout), true, nil
}

// ResolveCommit expands a commit identifier to the full hash.
func (r *Repo) ResolveCommit(ctx context.Context, id string) (string, error) {
	if !ValidCommitID(id) {
		return "", lserr.Wrapf(lserr.ErrInvalidIdentifier, "%q", id)
	}
	res, err := r.run.Run(ctx, r.dir, "rev-parse", "--verify", "--quiet", id+"^{commit}")
	if err != nil {
		if ExitCode(err) == 1 {
			return "", lserr.Wrapf(lserr.ErrUnknownSnapshot, "%s", id)
		}
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}

// Log returns raw `git log` output for the given pretty format, newest first.
// Records are NUL-terminated.
func (r *Repo) Log(ctx context.Context, format string, limit int, revs ...string) (string, error) {
	args := []string{"log", "-z", "--format=" + format}
	if limit > 0 {
		args = append(args, fmt.Sprintf("--max-count=%d", limit))
	}
	args = append(args, revs...)
	res, err := r.run.Run(ctx, r.dir, args...)
	if err != nil {
		return "", err
	}
	return res.Stdout, nil
}

// Status returns the porcelain status of the working tree, untracked files included.
func (r *Repo) Status(ctx context.Context) ([]StatusEntry, error) {
	res, err := r.run.Run(ctx, r.dir, "status", "--porcelain=v1", "-z", "--untracked-files=all")
	if err != nil {
		return nil, err
	}
	return ParseStatus(res.Stdout), nil
}

// CheckoutFiles overwrites the working tree with every file from commit.
// History and HEAD are left untouched.
func (r *Repo) CheckoutFiles(ctx context.Context, commit string) error {
	_, err := r.run.Run(ctx, r.dir, "checkout", commit, "--", ".")
	return err
}

// ResetHard reverts tracked files and the index to HEAD
func (r *Repo) ResetHard(ctx context.Context) error {
	_, err := r.run.Run(ctx, r.dir, "reset", "--quiet", "--hard", "HEAD")
	return err
}

// Clean removes untracked files and directories. Ignored files are kept.
func (r *Repo) Clean(ctx context.Context) error {
	_, err := r.run.Run(ctx, r.dir, "clean", "--quiet", "--force", "-d")
	return err
}

// Show reads a file as stored at commit
func (r *Repo) Show(ctx context.Context, commit, path string) ([]byte, error) {
	res, err := r.run.Run(ctx, r.dir, "show", fmt.Sprintf("%s:%s", commit, path))
	if err != nil {
		return nil, err
	}
	return []byte(res.Stdout), nil
}

// ListFiles returns the top-level file names of commit's tree
func (r *Repo) ListFiles(ctx context.Context, commit string) ([]string, error) {
	res, err := r.run.Run(ctx, r.dir, "ls-tree", "-z", "--name-only", commit)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, name := range strings.Split(res.Stdout, "\x00") {
		if name != "" {
			files = append(files, name)
		}
	}
	return files, nil
}
