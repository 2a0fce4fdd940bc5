package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/isometry/ldifutil/internal/ldif"
	"github.com/isometry/ldifutil/internal/report"
)

func newExtractCommand(g *globalOptions) *cobra.Command {
	opts := ldif.ExtractOptions()

	cmd := &cobra.Command{
		Use:   "extract <input-file> <attribute>",
		Short: "Print the values of one attribute for every entry that has it",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, attr := args[0], args[1]
			if strings.TrimSpace(attr) == "" {
				return &UsageError{Err: ldif.ErrEmptyAttribute}
			}

			in, err := g.open(cmd, path)
			if err != nil {
				return err
			}
			defer in.Close()

			w := bufio.NewWriter(cmd.OutOrStdout())
			p := ldif.NewParser(cmd.Context(), in, opts)
			err = ldif.ExtractFrom(p, attr, func(e ldif.Extraction) error {
				return report.WriteExtraction(w, e)
			})
			if err != nil {
				return errors.Join(fmt.Errorf("reading %s: %w", path, err), w.Flush())
			}

			logParseStats(cmd, path, p.Stats())
			return w.Flush()
		},
	}

	cmd.Flags().Var(&opts.Fold, "fold", "When to join continuation lines: empty-only or always")
	return cmd
}
