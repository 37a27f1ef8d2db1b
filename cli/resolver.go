package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/viant/afs"
)

// DefaultName is the executable looked up when no override is configured.
const DefaultName = "agent"

// localInstallPath returns the well-known per-user install location.
func localInstallPath(home string) string {
	return filepath.Join(home, ".agent", "local", "agent")
}

// ConfigError reports an invalid CLI override: only a bare executable name or
// an absolute path is accepted, never a relative path.
type ConfigError struct {
	Name string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid agent CLI override %q: use a bare name or an absolute path", e.Name)
}

// Resolver determines the path or command name used to invoke the agent CLI.
// The result is computed once per construction and never changes afterwards.
type Resolver struct {
	override string
	homeDir  string
	fs       afs.Service
	logger   zerolog.Logger
}

// NewResolver creates a resolver. override may be empty; homeDir may be empty,
// in which case the current user's home directory is used.
func NewResolver(override, homeDir string, logger zerolog.Logger) *Resolver {
	return &Resolver{override: override, homeDir: homeDir, fs: afs.New(), logger: logger}
}

// Resolve picks the executable in order: an absolute override as-is, the
// well-known local install location if present, otherwise the bare name
// deferred to the OS PATH lookup at invocation time. A relative override is
// rejected before any filesystem access.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	if r.override != "" {
		if filepath.IsAbs(r.override) {
			return r.override, nil
		}
		if strings.ContainsRune(r.override, '/') || strings.ContainsRune(r.override, os.PathSeparator) {
			return "", &ConfigError{Name: r.override}
		}
	}
	name := r.override
	if name == "" {
		name = DefaultName
	}
	home := r.homeDir
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	if home != "" {
		local := localInstallPath(home)
		if ok, _ := r.fs.Exists(ctx, local); ok {
			return local, nil
		}
	}
	r.logger.Warn().Str("name", name).Msg("agent CLI not found at its local install location, deferring to PATH lookup")
	return name, nil
}
