package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/isometry/ldifutil/internal/dircmp"
	"github.com/isometry/ldifutil/internal/ldap"
	"github.com/isometry/ldifutil/internal/ldif"
	"github.com/isometry/ldifutil/internal/report"
)

// EnvPassword supplies the bind password when the password argument is "-".
const EnvPassword = "LDIFUTIL_PASSWORD"

// kerberosOnlyFlags only make sense together with a Kerberos bind.
var kerberosOnlyFlags = []string{"ccache", "keytab", "spn", "krb5-config"}

// validateAuthFlags rejects Kerberos settings given without --kerberos or
// --kerberos-realm.
func validateAuthFlags(flags *pflag.FlagSet) error {
	used := make(map[string]bool)
	flags.Visit(func(f *pflag.Flag) {
		used[f.Name] = true
	})

	if used["kerberos"] || used["kerberos-realm"] {
		return nil
	}

	var stray []string
	for _, name := range kerberosOnlyFlags {
		if used[name] {
			stray = append(stray, "--"+name)
		}
	}
	if len(stray) > 0 {
		return fmt.Errorf("%s require --kerberos or --kerberos-realm", strings.Join(stray, ", "))
	}
	return nil
}

type dirDiffOptions struct {
	conn     *ldap.ConnectionConfig
	fold     ldif.FoldPolicy
	noStitch bool
}

func newDirDiffCommand(g *globalOptions) *cobra.Command {
	conn, err := ldap.NewConfig()
	if err != nil {
		panic(err) // static struct tags
	}
	conn.InsecureSkipVerify = true

	opts := &dirDiffOptions{conn: conn, fold: ldif.FoldEmptyOnly}

	cmd := &cobra.Command{
		Use:   "dirdiff <input-file> <attribute> <ldap-url> <base-dn> <username> <password>",
		Short: "Compare one attribute of every LDIF entry with a live directory",
		Long: "For each entry in the LDIF file that has the attribute, the entry is read from\n" +
			"the directory and every LDIF value is reported as matched or not, followed by\n" +
			"values only the directory holds. A failed lookup is reported for its DN and the\n" +
			"comparison continues. Pass \"-\" as the password to read it from $" + EnvPassword + ".",
		Args: exactArgs(6),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDirDiff(cmd, g, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.Var(&opts.fold, "fold", "When to join continuation lines: empty-only or always")
	flags.BoolVar(&opts.noStitch, "no-stitch", false, "Do not join a DN line that lacks the base DN suffix with the line after it")
	flags.DurationVar(&conn.HandshakeTimeout, "timeout", conn.HandshakeTimeout, "Bound on connecting to the directory, including proxy and TLS handshakes")
	flags.DurationVar(&conn.RequestTimeout, "request-timeout", conn.RequestTimeout, "Bound on each directory request")
	flags.StringVar(&conn.Filter, "filter", conn.Filter, "Filter applied to each base-scope lookup")
	flags.BoolVar(&conn.InsecureSkipVerify, "insecure", conn.InsecureSkipVerify, "Skip TLS certificate verification for ldaps:// and StartTLS")
	flags.BoolVar(&conn.StartTLS, "start-tls", false, "Upgrade an ldap:// connection with StartTLS")
	flags.StringVar(&conn.CACertFile, "ca-cert", "", "PEM file with CA certificates to trust")
	flags.StringVar(&conn.ClientCertFile, "cert", "", "PEM client certificate for TLS client authentication")
	flags.StringVar(&conn.ClientKeyFile, "key", "", "PEM private key for --cert")
	flags.StringVar(&conn.PFXFile, "pfx", "", "PKCS#12 file holding a client certificate and key")
	flags.StringVar(&conn.PFXPassword, "pfx-password", "", "Password for --pfx")
	flags.StringVar(&conn.SOCKSProxy, "socks", "", "Connect through a SOCKS proxy, e.g. socks5://127.0.0.1:1080")
	flags.BoolVar(&conn.UseKerberos, "kerberos", false, "Bind with Kerberos (GSSAPI)")
	flags.StringVar(&conn.KerberosRealm, "kerberos-realm", "", "Kerberos realm, implies --kerberos")
	flags.StringVar(&conn.KerberosConfig, "krb5-config", conn.KerberosConfig, "Path to krb5.conf")
	flags.StringVar(&conn.KerberosCCache, "ccache", "", "Kerberos credential cache")
	flags.StringVar(&conn.KerberosKeytab, "keytab", "", "Kerberos keytab")
	flags.StringVar(&conn.KerberosSPN, "spn", "", "Service principal to request a ticket for (default ldap/<host>)")
	flags.BoolVar(&conn.DecodeBinary, "decode-binary", false, "Render objectSid and objectGUID directory values as strings")
	return cmd
}

func runDirDiff(cmd *cobra.Command, g *globalOptions, opts *dirDiffOptions, args []string) error {
	path, attr := args[0], args[1]
	if strings.TrimSpace(attr) == "" {
		return &UsageError{Err: ldif.ErrEmptyAttribute}
	}
	if err := validateAuthFlags(cmd.Flags()); err != nil {
		return &UsageError{Err: err}
	}

	cfg := *opts.conn
	cfg.URL = args[2]
	cfg.BaseDN = args[3]
	cfg.Username = args[4]
	cfg.Password = args[5]
	if cfg.Password == "-" {
		cfg.Password = os.Getenv(EnvPassword)
	}

	ctx := cmd.Context()

	in, err := g.open(cmd, path)
	if err != nil {
		return err
	}
	defer in.Close()

	client, err := ldap.NewClient(ctx, &cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	parse := ldif.DirectoryOptions(cfg.BaseDN)
	parse.Fold = opts.fold
	if opts.noStitch {
		parse.StitchBaseDN = ""
	}

	w := bufio.NewWriter(cmd.OutOrStdout())
	p := ldif.NewParser(ctx, in, parse)
	runner := &dircmp.Runner{Lookuper: client, Attribute: attr}

	summary, err := runner.Run(ctx, p, func(o dircmp.Outcome) error {
		return report.WriteOutcome(w, o)
	})
	if err != nil {
		return errors.Join(fmt.Errorf("comparing %s: %w", path, err), w.Flush())
	}

	logParseStats(cmd, path, p.Stats())
	if summary.Failed > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %d of %d lookups failed\n", summary.Failed, summary.Records)
	}
	return w.Flush()
}
