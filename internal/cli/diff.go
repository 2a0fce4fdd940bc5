package cli

import (
	"bufio"
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-log/tflog"
	"github.com/spf13/cobra"

	"github.com/isometry/ldifutil/internal/ldap"
	"github.com/isometry/ldifutil/internal/ldif"
	"github.com/isometry/ldifutil/internal/report"
)

type diffOptions struct {
	parse       ldif.Options
	keepEmpty   bool
	normalizeDN bool
	explain     bool
}

func newDiffCommand(g *globalOptions) *cobra.Command {
	opts := diffOptions{parse: ldif.CompareOptions()}

	cmd := &cobra.Command{
		Use:   "diff <file1> <file2> [<attribute>]",
		Short: "List the DNs of entries that differ between two LDIF files",
		Long: "Without an attribute, an entry differs when it is missing from either file or\n" +
			"its attributes or values are not identical. With an attribute, only that\n" +
			"attribute's values are compared. DNs are printed in sorted order.",
		Args: rangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd, g, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.Var(&opts.parse.Fold, "fold", "When to join continuation lines: empty-only or always")
	flags.BoolVar(&opts.keepEmpty, "keep-empty", false, "Compare empty attribute values instead of ignoring them")
	flags.BoolVar(&opts.normalizeDN, "normalize-dn", false, "Match entries by normalized DN (case and spacing insensitive)")
	flags.BoolVar(&opts.explain, "explain", false, "Print why each DN is reported")
	return cmd
}

func runDiff(cmd *cobra.Command, g *globalOptions, opts diffOptions, args []string) error {
	ctx := cmd.Context()

	parse := opts.parse
	parse.SkipEmptyValues = !opts.keepEmpty

	var key ldif.KeyFunc
	if opts.normalizeDN {
		key = ldap.DNKey
	}

	first, err := readCollection(ctx, cmd, g, args[0], parse, key)
	if err != nil {
		return err
	}
	second, err := readCollection(ctx, cmd, g, args[1], parse, key)
	if err != nil {
		return err
	}

	var diffs []ldif.Difference
	if len(args) == 3 {
		diffs = ldif.DiffAttribute(first, second, args[2])
	} else {
		diffs = ldif.DiffRecords(first, second)
	}

	w := bufio.NewWriter(cmd.OutOrStdout())
	for _, d := range diffs {
		if err := report.WriteDifference(w, d, opts.explain); err != nil {
			return err
		}
	}

	tflog.SubsystemInfo(ctx, subsystem, "Compared LDIF files", map[string]any{
		"first":       args[0],
		"second":      args[1],
		"first_size":  first.Len(),
		"second_size": second.Len(),
		"differences": len(diffs),
	})
	return w.Flush()
}

func readCollection(ctx context.Context, cmd *cobra.Command, g *globalOptions, path string, opts ldif.Options, key ldif.KeyFunc) (*ldif.Collection, error) {
	in, err := g.open(cmd, path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	c, err := ldif.ParseCollection(ctx, in, opts, key)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return c, nil
}
