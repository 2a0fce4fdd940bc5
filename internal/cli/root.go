// Package cli implements the ldifutil command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/terraform-plugin-log/tflog"
	"github.com/spf13/cobra"

	"github.com/isometry/ldifutil/internal/input"
	"github.com/isometry/ldifutil/internal/ldif"
	"github.com/isometry/ldifutil/internal/logging"
)

const subsystem = logging.SubsystemCLI

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	logLevel string
	encoding string
	progress bool

	started time.Time
}

// open opens an LDIF input with the global decoding and progress settings.
func (g *globalOptions) open(cmd *cobra.Command, path string) (*input.File, error) {
	return g.openWith(cmd, path, input.Options{Encoding: g.encoding})
}

// openRaw opens path without character-set decoding.
func (g *globalOptions) openRaw(cmd *cobra.Command, path string) (*input.File, error) {
	return g.openWith(cmd, path, input.Options{Raw: true})
}

func (g *globalOptions) openWith(cmd *cobra.Command, path string, opts input.Options) (*input.File, error) {
	opts.Progress = g.progress
	opts.ProgressWriter = cmd.ErrOrStderr()

	f, err := input.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, nil
}

func newRootCommand() *cobra.Command {
	g := &globalOptions{}

	root := &cobra.Command{
		Use:   "ldifutil",
		Short: "Inspect, compare and filter LDIF exports",
		Long: "ldifutil reads LDIF dumps and extracts attribute values, compares two dumps,\n" +
			"compares a dump with a live directory, or copies a dump without selected attributes.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, err := logging.ResolveLevel(g.logLevel)
			if err != nil {
				return &UsageError{Err: err}
			}

			ctx := logging.NewContext(cmd.Context(), level)
			cmd.SetContext(ctx)
			g.started = time.Now()

			tflog.SubsystemDebug(ctx, subsystem, "Command started", map[string]any{
				"command":  cmd.Name(),
				"encoding": g.encoding,
			})
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			tflog.SubsystemDebug(cmd.Context(), subsystem, "Command finished", map[string]any{
				"command":     cmd.Name(),
				"duration_ms": time.Since(g.started).Milliseconds(),
			})
		},
	}

	root.SetFlagErrorFunc(flagError)

	flags := root.PersistentFlags()
	flags.StringVar(&g.logLevel, "log-level", "", "Log level on stderr: trace, debug, info, warn, error or off (default $"+logging.EnvLogLevel+" or "+logging.DefaultLevel+")")
	flags.StringVar(&g.encoding, "encoding", input.EncodingAuto, "Character set of LDIF inputs: auto (byte order mark, else UTF-8) or a name such as utf-16le or windows-1252. strip copies raw bytes and ignores it")
	flags.BoolVar(&g.progress, "progress", false, "Show a progress bar on stderr while reading inputs")

	root.AddCommand(
		newExtractCommand(g),
		newDiffCommand(g),
		newDirDiffCommand(g),
		newStripCommand(g),
		newVersionCommand(),
	)

	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return ExitOK
	}

	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		fmt.Fprintf(stdout, "Error: %v\n\n%s", err, cmd.UsageString())
		return ExitUsage
	}

	tflog.SubsystemError(cmd.Context(), subsystem, "Command failed", map[string]any{
		"command": cmd.Name(),
		"error":   err.Error(),
	})
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitFailure
}

func logParseStats(cmd *cobra.Command, path string, s ldif.Stats) {
	tflog.SubsystemInfo(cmd.Context(), subsystem, "Read LDIF input", map[string]any{
		"path":      path,
		"lines":     s.Lines,
		"records":   s.Records,
		"discarded": s.Discarded,
		"malformed": s.Malformed,
	})
}
