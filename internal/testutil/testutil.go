package testutil

import (
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/pders01/livesnap/internal/git"
)

// SetName is the marker file every temp project starts with
const SetName = "Song.als"

// MinimalSet is a small but structurally faithful Live Set document
const MinimalSet = `<?xml version="1.0" encoding="UTF-8"?>
<Ableton MajorVersion="5" MinorVersion="11.0_433" Creator="Ableton Live 11.3.4">
	<LiveSet>
		<Tracks>
			<MidiTrack Id="12">
				<Name>
					<EffectiveName Value="1-Bass" />
					<UserName Value="Bass" />
				</Name>
				<Color Value="14" />
				<DeviceChain>
					<DeviceChain>
						<Devices>
							<PluginDevice Id="0">
								<PluginDesc>
									<Vst3PluginInfo Id="0">
										<Name Value="Serum" />
										<Vendor Value="Xfer Records" />
									</Vst3PluginInfo>
								</PluginDesc>
							</PluginDevice>
						</Devices>
					</DeviceChain>
				</DeviceChain>
				<MidiNoteEvent Time="0" Duration="0.25" Velocity="100" OffVelocity="64" IsEnabled="true" />
				<MidiNoteEvent Time="1" Duration="0.25" Velocity="100" OffVelocity="64" IsEnabled="true" />
			</MidiTrack>
		</Tracks>
		<MasterTrack>
			<DeviceChain>
				<Mixer>
					<Tempo>
						<Manual Value="124" />
					</Tempo>
				</Mixer>
			</DeviceChain>
		</MasterTrack>
	</LiveSet>
</Ableton>
`

// TempProject is a temporary project folder for testing
type TempProject struct {
	Path string
	T    *testing.T
}

// IsolateGit pins the git identity and hides the user's global and system
// config from every git process started by the test.
func IsolateGit(t *testing.T) {
	t.Helper()
	t.Setenv("GIT_AUTHOR_NAME", "Test User")
	t.Setenv("GIT_AUTHOR_EMAIL", "test@example.com")
	t.Setenv("GIT_COMMITTER_NAME", "Test User")
	t.Setenv("GIT_COMMITTER_EMAIL", "test@example.com")
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	t.Setenv("GIT_CONFIG_GLOBAL", os.DevNull)
}

// NewTempProject creates a folder holding a gzipped Live Set and nothing else.
// It is not under version control yet.
func NewTempProject(t *testing.T) *TempProject {
	t.Helper()
	IsolateGit(t)

	p := &TempProject{Path: t.TempDir(), T: t}
	p.CreateBinary(SetName, GzipSet(t, MinimalSet))
	return p
}

// GzipSet compresses a Live Set document the way Live stores it on disk
func GzipSet(t *testing.T, doc string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(doc)); err != nil {
		t.Fatalf("failed to gzip set: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to gzip set: %v", err)
	}
	return buf.Bytes()
}

// CreateFile creates a file in the project
func (p *TempProject) CreateFile(name, content string) {
	p.T.Helper()
	p.CreateBinary(name, []byte(content))
}

// CreateBinary creates a file with raw content in the project
func (p *TempProject) CreateBinary(name string, content []byte) {
	p.T.Helper()
	path := filepath.Join(p.Path, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		p.T.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		p.T.Fatalf("failed to create file: %v", err)
	}
}

// ReadFile returns the content of a project file
func (p *TempProject) ReadFile(name string) string {
	p.T.Helper()
	data, err := os.ReadFile(filepath.Join(p.Path, name))
	if err != nil {
		p.T.Fatalf("failed to read file: %v", err)
	}
	return string(data)
}

// FileExists reports whether name exists in the working tree
func (p *TempProject) FileExists(name string) bool {
	p.T.Helper()
	_, err := os.Stat(filepath.Join(p.Path, name))
	return err == nil
}

// Git runs a git command in the project and returns trimmed stdout
func (p *TempProject) Git(args ...string) string {
	p.T.Helper()
	return strings.TrimSpace(p.GitRaw(args...))
}

// GitRaw runs git in the project and returns its untrimmed output
func (p *TempProject) GitRaw(args ...string) string {
	p.T.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = p.Path
	output, err := cmd.Output()
	if err != nil {
		p.T.Fatalf("git %v failed: %v", args, err)
	}
	return string(output)
}

// CommitCount returns the number of commits reachable from HEAD
func (p *TempProject) CommitCount() int {
	p.T.Helper()
	cmd := exec.Command("git", "rev-list", "--count", "HEAD")
	cmd.Dir = p.Path
	output, err := cmd.Output()
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(output)))
	if err != nil {
		p.T.Fatalf("unexpected rev-list output %q", output)
	}
	return n
}

// Subjects returns commit subjects reachable from HEAD, newest first
func (p *TempProject) Subjects() []string {
	p.T.Helper()
	out := p.Git("log", "--format=%s")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

// Call is one recorded invocation of a FakeRunner
type Call struct {
	Dir  string
	Args []string
}

// FakeRunner records git invocations and delegates to Next unless a
// failure is scripted for the subcommand.
type FakeRunner struct {
	Next git.Runner
	// Hook, when set, runs before every delegated call
	Hook func(args []string)

	mu       sync.Mutex
	calls    []Call
	failures map[string]error
}

// NewFakeRunner wraps next. A nil next makes every unscripted call succeed
// with empty output.
func NewFakeRunner(next git.Runner) *FakeRunner {
	return &FakeRunner{Next: next, failures: map[string]error{}}
}

// FailOn makes every call whose first argument is subcommand return err
func (f *FakeRunner) FailOn(subcommand string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[subcommand] = err
}

// Run implements git.Runner
func (f *FakeRunner) Run(ctx context.Context, dir string, args ...string) (git.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Dir: dir, Args: append([]string(nil), args...)})
	var scripted error
	if len(args) > 0 {
		scripted = f.failures[args[0]]
	}
	f.mu.Unlock()

	if scripted != nil {
		return git.Result{Stderr: scripted.Error()}, scripted
	}
	if f.Hook != nil {
		f.Hook(args)
	}
	if f.Next == nil {
		return git.Result{}, nil
	}
	return f.Next.Run(ctx, dir, args...)
}

// Calls returns a copy of the recorded invocations
func (f *FakeRunner) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Subcommands returns the first argument of each recorded call
func (f *FakeRunner) Subcommands() []string {
	var subs []string
	for _, c := range f.Calls() {
		if len(c.Args) > 0 {
			subs = append(subs, c.Args[0])
		}
	}
	return subs
}
