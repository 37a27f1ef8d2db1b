// Package bridge exposes a single external command-line agent as one MCP
// tool. It resolves the agent executable, probes its version in the
// background, and translates tools/call requests into non-interactive agent
// runs executed with a per-call deadline. Process outcomes are mapped onto a
// small JSON-RPC error taxonomy; nothing is retried and no state is kept
// across calls.
package bridge
