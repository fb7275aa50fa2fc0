package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/fusion/internal/config"
	"github.com/vango-dev/fusion/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╔═╗┬ ┬┌─┐┬┌─┐┌┐┌
  ╠╣ │ │└─┐││ ││││
  ╚  └─┘└─┘┴└─┘┘└┘
`

// Global flags.
var (
	configPath string
	verbose    bool
	noColor    bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fusion",
		Short: "Inspect and manage fusion stores",
		Long: `Fusion is a keyed reactive store for Go applications.

The fusion CLI works with the persisted records and the devtools
bridge of applications that use it:

  • Read, write and remove persisted records
  • List the stores registered with a running application
  • Tail store change events over WebSocket
  • Host a configured store with devtools and metrics`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor || os.Getenv("NO_COLOR") != "" {
				errors.DisableColors()
			}
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to fusion.json or fusion.yaml (default: search from working directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored error output")

	// Add commands
	rootCmd.AddCommand(
		storageCmd(),
		storesCmd(),
		snapshotCmd(),
		inspectCmd(),
		serveCmd(),
		versionCmd(),
	)

	return rootCmd
}

// loadConfig loads the configuration named by --config, or the nearest one
// above the working directory. Without any config file the defaults are used.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.LoadFromWorkingDir()
		if err != nil && isNotFound(err) {
			cfg, err = config.New(), nil
		}
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// printBanner prints the fusion ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
