package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pders01/livesnap/internal/config"
	"github.com/pders01/livesnap/internal/testutil"
	"github.com/spf13/viper"
)

// setupProject creates a temp project, points the commands at it and
// captures their output.
func setupProject(t *testing.T) (*testutil.TempProject, *bytes.Buffer) {
	t.Helper()

	p := testutil.NewTempProject(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TMPDIR", t.TempDir())

	resetFlags()
	projectDir = p.Path

	// no Ollama in tests
	viper.Set("search.enabled", false)
	viper.Set("log.level", "error")
	t.Cleanup(func() {
		d := config.Defaults()
		viper.Set("search.enabled", d.Search.Enabled)
		viper.Set("search.ollama_url", d.Search.OllamaURL)
		viper.Set("restore.auto_commit", d.Restore.AutoCommit)
		viper.Set("log.level", d.Log.Level)
	})

	var buf bytes.Buffer
	old := out
	out = &buf
	t.Cleanup(func() { out = old })

	return p, &buf
}

// initProject runs init on a fresh temp project
func initProject(t *testing.T) (*testutil.TempProject, *bytes.Buffer) {
	t.Helper()
	p, buf := setupProject(t)
	initNoConfig = true
	if err := runInit(nil, []string{}); err != nil {
		t.Fatalf("init command failed: %v", err)
	}
	buf.Reset()
	return p, buf
}

// saveVersion records the current folder state and returns its short hash
func saveVersion(t *testing.T, p *testutil.TempProject, message string) string {
	t.Helper()
	saveNoEmbed = true
	if err := runSave(nil, []string{message}); err != nil {
		t.Fatalf("save command failed: %v", err)
	}
	return p.Git("rev-parse", "--short=7", "HEAD")
}

// writeSet replaces the project's Live Set with doc
func writeSet(t *testing.T, p *testutil.TempProject, doc string) {
	t.Helper()
	p.CreateBinary(testutil.SetName, testutil.GzipSet(t, doc))
}

func withTempo(bpm string) string {
	return strings.Replace(testutil.MinimalSet, `<Manual Value="124" />`, `<Manual Value="`+bpm+`" />`, 1)
}

func resetFlags() {
	cfgFile = ""
	projectDir = ""
	verbose = false

	initNoConfig = false
	saveNoEmbed = false

	listLimit = 0
	listOneline = false
	listJSON = false
	listToon = false

	restoreCancel = false
	restoreDiscard = false
	restoreCommit = false
	restoreNoCommit = false
	restoreYes = false
	restoreJSON = false

	statusJSON = false
	showJSON = false
	showToon = false
	diffJSON = false
	diffToon = false
	inspectJSON = false
	inspectToon = false

	searchLimit = 10
	searchDepth = 500
	searchReindex = false
	searchJSON = false

	statsJSON = false
	statsToon = false
}
