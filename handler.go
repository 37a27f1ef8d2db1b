package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/viant/jsonrpc"
	"github.com/viant/mcp-protocol/schema"
	protoserver "github.com/viant/mcp-protocol/server"

	"github.com/agentmcp/bridge/proc"
)

// ToolName is the single tool this bridge declares.
const ToolName = "run_agent"

// Fixed flags passed on every run: skip interactive confirmations, then a
// one-shot prompt.
const (
	cliYesFlag    = "--yes"
	cliPromptFlag = "-p"
)

const toolDescriptionTemplate = "Runs the configured command-line agent non-interactively with a single prompt and returns its standard output. " +
	"Provide an absolute workFolder to control the directory the agent operates in; otherwise the user's home directory is used. " +
	"Bridge v%s, agent CLI version: %s."

// Handler dispatches tool requests for the bridge. Everything it does not
// override is delegated to the protocol default handler.
type Handler struct {
	protoserver.Handler
	service *Service
	logger  zerolog.Logger
}

// Initialize advertises the tools capability on top of the default handshake.
func (h *Handler) Initialize(ctx context.Context, init *schema.InitializeRequestParams, result *schema.InitializeResult) {
	h.Handler.Initialize(ctx, init, result)
	result.Capabilities.Tools = &schema.ServerCapabilitiesTools{}
}

// Implements reports the methods this handler serves.
func (h *Handler) Implements(method string) bool {
	switch method {
	case schema.MethodToolsList, schema.MethodToolsCall:
		return true
	}
	return h.Handler.Implements(method)
}

// ListTools declares the agent tool. The description embeds the bridge's own
// version and the probed agent CLI version; an unprobed or failed probe is
// retried here.
func (h *Handler) ListTools(ctx context.Context, request *jsonrpc.TypedRequest[*schema.ListToolsRequest]) (*schema.ListToolsResult, *jsonrpc.Error) {
	description := fmt.Sprintf(toolDescriptionTemplate, Version, h.service.prober.Version(ctx))
	tool := schema.Tool{
		Name:        ToolName,
		Description: &description,
		InputSchema: schema.ToolInputSchema{
			Type: "object",
			Properties: schema.ToolInputSchemaProperties{
				"prompt": map[string]interface{}{
					"type":        "string",
					"description": "The natural-language task to hand to the agent.",
				},
				"workFolder": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path of the working directory for the agent run.",
				},
			},
			Required: []string{"prompt"},
		},
	}
	return &schema.ListToolsResult{Tools: []schema.Tool{tool}}, nil
}

// toolArgs is the validated form of a tools/call argument object.
type toolArgs struct {
	Prompt     string
	WorkFolder string
}

// parseToolArgs validates the raw argument map directly, so a mistyped prompt
// is reported as such instead of surfacing as a decode failure.
func parseToolArgs(arguments map[string]interface{}) (*toolArgs, error) {
	raw, ok := arguments["prompt"]
	if !ok {
		return nil, errors.New("missing required argument: prompt")
	}
	prompt, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("argument prompt must be a string, got %T", raw)
	}
	args := &toolArgs{Prompt: prompt}
	if raw, ok := arguments["workFolder"]; ok {
		folder, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("argument workFolder must be a string, got %T", raw)
		}
		args.WorkFolder = folder
	}
	return args, nil
}

// CallTool runs the agent CLI with the validated prompt and maps the process
// outcome onto the JSON-RPC error taxonomy.
func (h *Handler) CallTool(ctx context.Context, request *jsonrpc.TypedRequest[*schema.CallToolRequest]) (*schema.CallToolResult, *jsonrpc.Error) {
	params := request.Request.Params
	if params.Name != ToolName {
		return nil, jsonrpc.NewMethodNotFound(fmt.Sprintf("tool %q not found", params.Name), nil)
	}
	args, err := parseToolArgs(params.Arguments)
	if err != nil {
		return nil, jsonrpc.NewInvalidParamsError(err.Error(), nil)
	}
	if h.service.cliPath == "" {
		return nil, jsonrpc.NewInternalError("agent CLI path is not configured: fix the CLI override and restart the bridge", nil)
	}

	logger := h.logger.With().Str("call", uuid.NewString()).Logger()
	cwd := h.service.workingDir(ctx, args.WorkFolder)
	logger.Debug().Str("cwd", cwd).Int("promptLen", len(args.Prompt)).Msg("running agent CLI")

	result, err := proc.Run(ctx, h.service.cliPath,
		[]string{cliYesFlag, cliPromptFlag, args.Prompt},
		proc.Options{Timeout: h.service.timeout, Dir: cwd})
	if err != nil {
		logger.Debug().Err(err).Msg("agent run failed")
		return nil, jsonrpc.NewInternalError(h.executionError(err), nil)
	}
	if result.Stderr != "" {
		logger.Debug().Str("stderr", result.Stderr).Msg("agent run produced stderr")
	}
	return &schema.CallToolResult{
		Content: []schema.CallToolResultContentElem{
			schema.TextContent{Text: strings.TrimRight(result.Stdout, " \t\r\n"), Type: "text"},
		},
	}, nil
}

// executionError renders a process failure as the message surfaced to the
// protocol client; a timeout names the configured deadline, everything else
// carries the invoker's classification, both with any captured output.
func (h *Handler) executionError(err error) string {
	var procErr *proc.Error
	if errors.As(err, &procErr) && procErr.Kind == proc.KindTimeout {
		return appendOutput(fmt.Sprintf("agent run timed out after %s", h.service.timeout), procErr.Stdout, procErr.Stderr)
	}
	msg := fmt.Sprintf("agent run failed: %v", err)
	if procErr != nil {
		return appendOutput(msg, procErr.Stdout, procErr.Stderr)
	}
	return msg
}

func appendOutput(msg, stdout, stderr string) string {
	if fragment := strings.TrimSpace(stderr); fragment != "" {
		msg += "\nstderr: " + fragment
	}
	if fragment := strings.TrimSpace(stdout); fragment != "" {
		msg += "\nstdout: " + fragment
	}
	return msg
}
