package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/pders01/livesnap/internal/config"
	lserr "github.com/pders01/livesnap/internal/errors"
	"github.com/pders01/livesnap/internal/git"
	"github.com/pders01/livesnap/internal/lifecycle"
	"github.com/pders01/livesnap/internal/lock"
	"github.com/pders01/livesnap/internal/logging"
	"github.com/pders01/livesnap/internal/project"
	"github.com/pders01/livesnap/internal/restore"
	"github.com/pders01/livesnap/internal/snapshot"
	"github.com/pders01/livesnap/internal/ui"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile    string
	projectDir string
	verbose    bool
)

// out receives everything meant for the user; tests swap it for a buffer
var out io.Writer = os.Stdout

var rootCmd = &cobra.Command{
	Use:   "livesnap",
	Short: "Version history for Ableton Live project folders",
	Long: `livesnap keeps a git-backed history of an Ableton Live project folder:
  - save named versions of the whole folder
  - list and inspect earlier versions
  - restore any version without losing unsaved work
  - search the history by message and Live Set content

Live Sets are stored as plain XML in the history so versions stay
diffable, and are written back gzipped for Live to open.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Red.Render(errorLine(err)))
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	config.SetDefaults(viper.GetViper())

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/livesnap/config.toml)")
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project", "p", "", "project folder (default is the current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log diagnostic output to stderr")
}

func initConfig() {
	// .env in the working directory is optional
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		viper.AddConfigPath(filepath.Join(home, ".config", config.AppName))
		viper.SetConfigType("toml")
		viper.SetConfigName("config")
	}

	config.BindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		logger := newLogger()
		logger.Debug("using config file", logger.Args("path", viper.ConfigFileUsed()))
	} else if cfgFile != "" {
		fmt.Fprintf(os.Stderr, "Warning: failed to read config file %s: %v\n", cfgFile, err)
	}
}

// errorLine renders err with its category so scripts and users can tell
// bad input from a failed git call.
func errorLine(err error) string {
	kind := lserr.KindOf(err)
	if kind == lserr.KindUnknown {
		return "Error: " + err.Error()
	}
	return fmt.Sprintf("Error (%s): %s", kind, err)
}

func newLogger() *pterm.Logger {
	level := config.GetLogLevel()
	if verbose {
		level = "debug"
	}
	return logging.New(level, config.GetLogFormat(), os.Stderr)
}

// services bundles the managers one command invocation works with
type services struct {
	logger    *pterm.Logger
	runner    git.Runner
	snapshots *snapshot.Manager
}

func newServices() *services {
	logger := newLogger()
	runner := git.NewCLI(config.GetGitBinary(), logger)
	return &services{
		logger:    logger,
		runner:    runner,
		snapshots: snapshot.NewManager(runner, logger),
	}
}

func (s *services) lifecycleManager() *lifecycle.Manager {
	name, email := config.GetIdentity()
	return lifecycle.NewManager(s.runner, s.snapshots, lifecycle.DefaultTemplates(),
		lifecycle.Identity{Name: name, Email: email}, s.logger)
}

func (s *services) restorer(autoCommit bool) *restore.Orchestrator {
	return restore.New(s.runner, s.snapshots, restore.Options{AutoCommit: autoCommit}, s.logger)
}

func (s *services) repo(h project.Handle) *git.Repo {
	return git.Open(s.runner, h.Path())
}

func projectPath() (string, error) {
	if projectDir != "" {
		return projectDir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", lserr.NewFilesystemError("getwd", ".", err)
	}
	return wd, nil
}

// openProject resolves the selected folder. requireMarker additionally
// checks that it holds a Live Set.
func openProject(requireMarker bool) (project.Handle, error) {
	path, err := projectPath()
	if err != nil {
		return project.Handle{}, err
	}
	if requireMarker {
		return project.Open(path, config.GetMarkerExt())
	}
	return project.New(path)
}

// withLock runs fn while holding the project's advisory lock
func withLock(h project.Handle, fn func() error) error {
	l := lock.New(h.Path())
	if err := l.Acquire(); err != nil {
		return err
	}
	defer func() { _ = l.Release() }()
	return fn()
}

func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}
