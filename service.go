package bridge

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/viant/afs"
	"github.com/viant/jsonrpc/transport"
	"github.com/viant/jsonrpc/transport/server/stdio"
	protoclient "github.com/viant/mcp-protocol/client"
	protologger "github.com/viant/mcp-protocol/logger"
	"github.com/viant/mcp-protocol/schema"
	protoserver "github.com/viant/mcp-protocol/server"
	mcpserver "github.com/viant/mcp/server"

	"github.com/agentmcp/bridge/cli"
)

// Service wires the CLI resolver, version prober and process invoker behind
// an MCP server. The resolved CLI path is written once at construction and
// read-only afterwards.
type Service struct {
	options *Options
	logger  zerolog.Logger
	fs      afs.Service
	cliPath string
	timeout time.Duration
	prober  *cli.VersionProber
}

// New resolves the agent CLI and kicks off the asynchronous version probe.
// An invalid CLI override is logged, not fatal: the bridge still starts and
// every subsequent call fails deterministically until the configuration is
// fixed.
func New(ctx context.Context, options *Options, logger zerolog.Logger) (*Service, error) {
	s := &Service{
		options: options,
		logger:  logger,
		fs:      afs.New(),
		timeout: options.Timeout(),
	}
	resolver := cli.NewResolver(options.CLIName, "", logger)
	path, err := resolver.Resolve(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("agent CLI resolution failed, tool calls will be rejected")
		path = ""
	}
	s.cliPath = path
	s.prober = cli.NewVersionProber(path, logger)
	s.prober.Start(ctx)
	return s, nil
}

// NewHandler builds the per-connection protocol handler factory.
func (s *Service) NewHandler() protoserver.NewHandler {
	newBase := protoserver.WithDefaultHandler(context.Background(), func(*protoserver.DefaultHandler) error { return nil })
	return func(ctx context.Context, notifier transport.Notifier, logger protologger.Logger, clientOps protoclient.Operations) (protoserver.Handler, error) {
		base, err := newBase(ctx, notifier, logger, clientOps)
		if err != nil {
			return nil, err
		}
		return &Handler{Handler: base, service: s, logger: s.logger}, nil
	}
}

func (s *Service) server() (*mcpserver.Server, error) {
	return mcpserver.New(
		mcpserver.WithNewHandler(s.NewHandler()),
		mcpserver.WithImplementation(schema.Implementation{Name: "agent-mcp", Version: Version}),
	)
}

// Stdio serves the bridge over standard input/output.
func (s *Service) Stdio(ctx context.Context) (*stdio.Server, error) {
	srv, err := s.server()
	if err != nil {
		return nil, err
	}
	return srv.Stdio(ctx), nil
}

// HTTP serves the bridge over HTTP/SSE on addr.
func (s *Service) HTTP(ctx context.Context, addr string) (*http.Server, error) {
	srv, err := s.server()
	if err != nil {
		return nil, err
	}
	return srv.HTTP(ctx, addr), nil
}

// workingDir resolves the effective working directory for one call: an
// existing workFolder resolved to an absolute path, otherwise the user's home
// directory.
func (s *Service) workingDir(ctx context.Context, workFolder string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
		s.logger.Warn().Err(err).Str("fallback", home).Msg("home directory unavailable, using temp directory")
	}
	if workFolder == "" {
		return home
	}
	abs, err := filepath.Abs(workFolder)
	if err != nil {
		s.logger.Warn().Str("requested", workFolder).Str("fallback", home).Msg("work folder could not be resolved, falling back to home directory")
		return home
	}
	if ok, _ := s.fs.Exists(ctx, abs); ok {
		return abs
	}
	s.logger.Warn().Str("requested", abs).Str("fallback", home).Msg("work folder does not exist, falling back to home directory")
	return home
}
