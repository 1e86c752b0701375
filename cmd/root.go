// Package cmd implements the vscroll demo CLI commands using cobra.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/marcus/vscroll/internal/workdir"
	"github.com/spf13/cobra"
)

var (
	versionStr      string
	baseDir         string
	baseDirOverride *string // For testing
	workDirFlag     string  // --work-dir flag value
)

// SetVersion sets the version string and enables --version flag.
func SetVersion(v string) {
	versionStr = v
	rootCmd.Version = v
}

var rootCmd = &cobra.Command{
	Use:   "vscroll",
	Short: "Virtual scroll demo CLI over a SQLite-backed message feed",
	Long: `vscroll - a demo CLI exercising the virtual scroll state machine over a
local SQLite message feed: seed it with messages, then watch it slide
through backward/forward scroll windows in a terminal UI.`,
	SilenceErrors: true,
}

// initLogFile redirects slog to a file if VSCROLL_LOG_FILE is set.
// Useful for capturing log output, such as the manager's selection-update
// failures, while the watch TUI owns the terminal.
func initLogFile() *os.File {
	path := os.Getenv("VSCROLL_LOG_FILE")
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return f
}

// Execute runs the root command.
func Execute() {
	if f := initLogFile(); f != nil {
		defer f.Close()
	}

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initBaseDir)
	rootCmd.PersistentFlags().StringVar(&workDirFlag, "work-dir", "", "path to the directory containing .vscroll (or the .vscroll dir itself)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "core", Title: "Core Commands:"},
		&cobra.Group{ID: "system", Title: "System Commands:"},
	)
	rootCmd.SetHelpCommandGroupID("system")
	rootCmd.SetCompletionCommandGroupID("system")
}

func initBaseDir() {
	var err error

	if workDirFlag != "" {
		baseDir = workDirFlag
		if filepath.Base(baseDir) == ".vscroll" {
			baseDir = filepath.Dir(baseDir)
		}
		if !filepath.IsAbs(baseDir) {
			cwd, err := os.Getwd()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: cannot determine working directory: %v\n", err)
				os.Exit(1)
			}
			baseDir = filepath.Join(cwd, baseDir)
		}
		baseDir = filepath.Clean(baseDir)
		return
	}

	baseDir, err = os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot determine working directory: %v\n", err)
		os.Exit(1)
	}
	baseDir = workdir.ResolveBaseDir(baseDir)
}

// getBaseDir returns the resolved base directory for the feed store.
func getBaseDir() string {
	if baseDirOverride != nil {
		return *baseDirOverride
	}
	return baseDir
}

// ValidateNonEmpty checks that a required string argument was provided.
func ValidateNonEmpty(val, usage string) error {
	if strings.TrimSpace(val) == "" {
		return fmt.Errorf("argument required. Usage: vscroll %s", usage)
	}
	return nil
}
