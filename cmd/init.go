package cmd

import (
	"fmt"

	"github.com/pders01/livesnap/internal/config"
	lserr "github.com/pders01/livesnap/internal/errors"
	"github.com/pders01/livesnap/internal/lifecycle"
	"github.com/pders01/livesnap/internal/ui"
	"github.com/spf13/cobra"
)

var initNoConfig bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Put a Live project folder under version control",
	Long: `Create a repository in the project folder if it does not have one yet.

This command:
  - Writes ignore rules for backups, analysis files and rendered audio
  - Stores Live Sets uncompressed in the history so versions can be compared
  - Records the current state as the first version
  - Creates a default config file if it doesn't exist

Running it again on an initialized folder changes nothing.

Examples:
  livesnap init
  livesnap init -p ~/Music/Projects/Demo\ Project`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&initNoConfig, "no-config", false, "Don't create the default config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	h, err := openProject(true)
	if err != nil {
		return err
	}

	svc := newServices()
	var res lifecycle.Result
	err = withLock(h, func() error {
		return ui.Spin("Initializing version control...", func() error {
			res, err = svc.lifecycleManager().EnsureInitialized(commandContext(cmd), h)
			return err
		})
	})
	if err != nil {
		if res.Created {
			ui.Warn(out, "Repository was created in %s but setup did not finish (%s)", h, lserr.StepOf(err))
		}
		return err
	}

	if res.Created {
		ui.Success(out, "Initialized version control in %s", h)
		if res.Initial != nil {
			fmt.Fprintf(out, "  First version: %s\n", ui.HashTag.Render(res.Initial.ShortHash))
		}
	} else {
		fmt.Fprintf(out, "%s is already under version control\n", h)
	}

	if !initNoConfig {
		if err := writeDefaultConfig(); err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "\n  You can now use: livesnap save \"<message>\"\n")
	return nil
}

func writeDefaultConfig() error {
	path := cfgFile
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return err
		}
	}
	written, err := config.WriteDefault(path)
	if err != nil {
		return err
	}
	if written {
		ui.Success(out, "Created default config: %s", path)
	}
	return nil
}

