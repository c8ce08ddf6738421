package project

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	lserr "github.com/pders01/livesnap/internal/errors"
	"github.com/pders01/livesnap/internal/git"
)

// DefaultMarkerExt identifies an Ableton Live Set
const DefaultMarkerExt = ".als"

// StateDirName holds livesnap's own files inside the repository metadata dir
const StateDirName = "livesnap"

// Handle identifies a project folder under management. The zero value
// means "no project selected".
type Handle struct {
	path string
}

// New returns a handle for path without checking for a marker file.
func New(path string) (Handle, error) {
	if strings.TrimSpace(path) == "" {
		return Handle{}, lserr.ErrNoProject
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return Handle{}, lserr.NewFilesystemError("resolve", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Handle{}, lserr.NewFilesystemError("stat", abs, err)
	}
	if !info.IsDir() {
		return Handle{}, lserr.Wrapf(lserr.ErrValidation, "%s is not a directory", abs)
	}
	return Handle{path: abs}, nil
}

// Open returns a handle for path after checking that it holds at least one
// top-level file with markerExt.
func Open(path, markerExt string) (Handle, error) {
	h, err := New(path)
	if err != nil {
		return Handle{}, err
	}
	files, err := MarkerFiles(h.path, markerExt)
	if err != nil {
		return Handle{}, err
	}
	if len(files) == 0 {
		return Handle{}, lserr.Wrapf(lserr.ErrNoMarker, "no %s file in %s", normalizeExt(markerExt), h.path)
	}
	return h, nil
}

// Path returns the absolute project path
func (h Handle) Path() string {
	return h.path
}

// IsZero reports whether no project is selected
func (h Handle) IsZero() bool {
	return h.path == ""
}

// StateDir is where livesnap keeps untracked bookkeeping (search index)
func (h Handle) StateDir() string {
	return filepath.Join(h.path, git.MetadataDir, StateDirName)
}

func (h Handle) String() string {
	return h.path
}

// MarkerFiles lists top-level files in dir ending in ext (case-insensitive),
// sorted by name.
func MarkerFiles(dir, ext string) ([]string, error) {
	ext = normalizeExt(ext)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, lserr.NewFilesystemError("read", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ext) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// Primary returns the most recently modified marker file in dir.
func Primary(dir, ext string) (string, error) {
	files, err := MarkerFiles(dir, ext)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", lserr.Wrapf(lserr.ErrNoMarker, "no %s file in %s", normalizeExt(ext), dir)
	}

	primary := files[0]
	var newest int64
	for _, name := range files {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); mod > newest {
			newest = mod
			primary = name
		}
	}
	return primary, nil
}

// PickMarker chooses a marker file from names (for example a commit's
// tree listing): preferred if present, otherwise the first match by name.
func PickMarker(names []string, ext, preferred string) (string, bool) {
	ext = normalizeExt(ext)
	var matches []string
	for _, name := range names {
		if strings.EqualFold(filepath.Ext(name), ext) {
			if name == preferred {
				return name, true
			}
			matches = append(matches, name)
		}
	}
	if len(matches) == 0 {
		return "", false
	}
	sort.Strings(matches)
	return matches[0], true
}

func normalizeExt(ext string) string {
	if ext == "" {
		ext = DefaultMarkerExt
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
