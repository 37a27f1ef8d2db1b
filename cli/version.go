package cli

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentmcp/bridge/proc"
)

// VersionUnknown is cached when a probe fails or the CLI reports nothing.
const VersionUnknown = "unknown"

const (
	versionFlag         = "--version"
	versionProbeTimeout = 5 * time.Second
)

type probeState int

const (
	stateUnprobed probeState = iota
	stateProbed
	stateFailed
)

// VersionProber determines the agent CLI's reported version string, cached for
// the prober's lifetime. A failed probe is not terminal: the next version
// request retries it. Probe failures never propagate to callers; they only
// affect the text embedded in the published tool description.
type VersionProber struct {
	cliPath string
	logger  zerolog.Logger

	// probeMu serializes probe attempts: a caller racing an in-flight probe
	// waits for it and reuses its outcome instead of spawning a second one.
	probeMu sync.Mutex

	mu      sync.Mutex
	state   probeState
	version string
}

// NewVersionProber creates a prober for the resolved CLI path.
func NewVersionProber(cliPath string, logger zerolog.Logger) *VersionProber {
	return &VersionProber{cliPath: cliPath, logger: logger, version: VersionUnknown}
}

// Start kicks off one asynchronous probe. It does not block and its outcome
// is not awaited.
func (p *VersionProber) Start(ctx context.Context) {
	go p.probe(ctx)
}

// Version returns the cached version string. When the cached state is
// unprobed or failed it re-probes synchronously first.
func (p *VersionProber) Version(ctx context.Context) string {
	p.mu.Lock()
	if p.state == stateProbed {
		version := p.version
		p.mu.Unlock()
		return version
	}
	p.mu.Unlock()

	p.probe(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.version
}

func (p *VersionProber) probe(ctx context.Context) {
	p.probeMu.Lock()
	defer p.probeMu.Unlock()
	p.mu.Lock()
	if p.state == stateProbed {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	result, err := proc.Run(ctx, p.cliPath, []string{versionFlag}, proc.Options{Timeout: versionProbeTimeout})

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.logger.Debug().Err(err).Msg("agent CLI version probe failed")
		p.state = stateFailed
		p.version = VersionUnknown
		return
	}
	version := strings.TrimSpace(result.Stdout)
	if version == "" {
		version = VersionUnknown
	}
	p.state = stateProbed
	p.version = version
}
