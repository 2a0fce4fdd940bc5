// Package logging builds the structured loggers every ldifutil command
// writes to. Log lines are JSON on stderr so that reports on stdout stay
// clean.
package logging

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/terraform-plugin-log/tflog"
	"github.com/hashicorp/terraform-plugin-log/tfsdklog"
)

const (
	// EnvLogLevel sets the root level. LDIFUTIL_LOG_<SUBSYSTEM> overrides
	// a single subsystem.
	EnvLogLevel = "LDIFUTIL_LOG"

	DefaultLevel = "warn"

	SubsystemLDIF   = "ldif"
	SubsystemLDAP   = "ldap"
	SubsystemDirCmp = "dircmp"
	SubsystemCLI    = "cli"
)

// Subsystems lists every subsystem registered by WithSubsystems.
var Subsystems = []string{SubsystemLDIF, SubsystemLDAP, SubsystemDirCmp, SubsystemCLI}

var maskedKeys = []string{"password", "pfx_password", "credentials"}

// ParseLevel accepts trace, debug, info, warn, error and off.
func ParseLevel(s string) (hclog.Level, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "off") {
		return hclog.Off, nil
	}
	level := hclog.LevelFromString(s)
	if level == hclog.NoLevel {
		return hclog.NoLevel, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// ResolveLevel picks the explicit level if set, then EnvLogLevel, then DefaultLevel.
func ResolveLevel(explicit string) (hclog.Level, error) {
	switch {
	case explicit != "":
		return ParseLevel(explicit)
	case os.Getenv(EnvLogLevel) != "":
		return ParseLevel(os.Getenv(EnvLogLevel))
	default:
		return ParseLevel(DefaultLevel)
	}
}

// NewContext attaches a root logger writing to stderr plus the subsystem loggers.
func NewContext(ctx context.Context, level hclog.Level) context.Context {
	ctx = tfsdklog.NewRootProviderLogger(ctx,
		tfsdklog.WithLogName("ldifutil"),
		tfsdklog.WithLevel(level),
		tfsdklog.WithoutLocation(),
	)
	return WithSubsystems(ctx)
}

// WithSubsystems tags the root logger with a run id, registers the
// subsystems and masks credential fields everywhere.
func WithSubsystems(ctx context.Context) context.Context {
	ctx = tflog.SetField(ctx, "run_id", uuid.NewString())
	ctx = tflog.MaskFieldValuesWithFieldKeys(ctx, maskedKeys...)

	for _, name := range Subsystems {
		ctx = tflog.NewSubsystem(ctx, name,
			tflog.WithLevelFromEnv(EnvLogLevel, strings.ToUpper(name)),
			tflog.WithRootFields(),
		)
		ctx = tflog.SubsystemMaskFieldValuesWithFieldKeys(ctx, name, maskedKeys...)
	}
	return ctx
}
