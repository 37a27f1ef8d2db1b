// Command agent-mcp is a standalone binary that exposes an external
// command-line agent as a single MCP tool over stdio (or HTTP/SSE with
// --http).
package main

import (
	"log"
	"os"

	"github.com/agentmcp/bridge"
)

func main() {
	if err := bridge.Run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
