package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/terraform-plugin-log/tflog"
	"github.com/spf13/cobra"

	"github.com/isometry/ldifutil/internal/ldif"
)

func newStripCommand(g *globalOptions) *cobra.Command {
	opts := ldif.FilterOptions()

	cmd := &cobra.Command{
		Use:   "strip <input-file> <output-file> <attr1,attr2,...>",
		Short: "Copy an LDIF file without the named attributes",
		Long: `Copy an LDIF file without the named attributes.

Kept lines are copied byte for byte: --encoding does not apply and each
line keeps its "\n" or "\r\n" terminator. The output file is written only
when the whole input was copied.`,
		Args: exactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, dst := args[0], args[1]
			if sameFile(src, dst) {
				return &UsageError{Err: fmt.Errorf("output file %s is the input file", dst)}
			}
			remove := ldif.ParseRemovalList(args[2])

			in, err := g.openRaw(cmd, src)
			if err != nil {
				return err
			}
			defer in.Close()

			var stats ldif.FilterStats
			err = writeAtomic(dst, func(w io.Writer) error {
				var err error
				stats, err = ldif.NewFilter(remove, opts).Copy(cmd.Context(), w, in)
				if err != nil {
					return fmt.Errorf("copying %s to %s: %w", src, dst, err)
				}
				return nil
			})
			if err != nil {
				return err
			}

			tflog.SubsystemInfo(cmd.Context(), subsystem, "Stripped attributes", map[string]any{
				"input":      src,
				"output":     dst,
				"attributes": remove,
				"kept":       stats.Kept,
				"dropped":    stats.Dropped,
			})
			return nil
		},
	}

	cmd.Flags().Var(&opts.Fold, "fold", "Which continuation lines of a removed attribute to drop: always (all) or empty-only (only after an empty first value)")
	return cmd
}

// writeAtomic writes through a temporary file next to path and renames it
// over path only when write succeeds. On failure path is left untouched.
func writeAtomic(path string, write func(io.Writer) error) (err error) {
	mode := os.FileMode(0o644)
	if info, statErr := os.Stat(path); statErr == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := write(tmp); err != nil {
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		return fmt.Errorf("setting mode on %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

func sameFile(a, b string) bool {
	if filepath.Clean(a) == filepath.Clean(b) {
		return true
	}
	ia, err := os.Stat(a)
	if err != nil {
		return false
	}
	ib, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ia, ib)
}
