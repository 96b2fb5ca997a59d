// Package transport selects and drives the concrete channel used to reach
// the orchestrator backends. The selector decides which base address serves
// a backend; a Channel carries individual requests and push streams over
// either direct networking or a privileged host bridge.
package transport

import "strings"

// Environment identifies the runtime context the client runs in.
type Environment string

const (
	// EnvShell is the packaged native shell. Calls are routed through the
	// host bridge because the embedded webview has no cross-origin access.
	EnvShell Environment = "shell"
	// EnvBrowser is a plain browser-style context issuing direct requests.
	EnvBrowser Environment = "browser"
	// EnvDev routes through the local dev server's proxy.
	EnvDev Environment = "dev"
)

// Backend identifies which remote service a request targets. The primary
// backend and the hook/alert service are independent services with separate
// base addresses, not variants of one API.
type Backend string

const (
	BackendPrimary Backend = "primary"
	BackendHooks   Backend = "hooks"
)

// defaultBases maps each environment to its per-backend base addresses.
var defaultBases = map[Environment]map[Backend]string{
	EnvShell: {
		BackendPrimary: "http://localhost:8083",
		BackendHooks:   "http://localhost:8091",
	},
	EnvBrowser: {
		BackendPrimary: "http://localhost:8083",
		BackendHooks:   "http://localhost:8091",
	},
	EnvDev: {
		BackendPrimary: "http://localhost:5173/backend",
		BackendHooks:   "http://localhost:5173/hooks",
	},
}

// Selector resolves the base address for a backend. It is pure and
// deterministic: no I/O, no retries, no per-call environment detection.
// Explicit overrides always win over the environment defaults.
type Selector struct {
	Env             Environment
	PrimaryOverride string
	HooksOverride   string
}

// BaseURL returns the base address to use for the given backend, without a
// trailing slash.
func (s Selector) BaseURL(backend Backend) string {
	switch backend {
	case BackendHooks:
		if s.HooksOverride != "" {
			return strings.TrimSuffix(s.HooksOverride, "/")
		}
	default:
		if s.PrimaryOverride != "" {
			return strings.TrimSuffix(s.PrimaryOverride, "/")
		}
	}

	env := s.Env
	if _, ok := defaultBases[env]; !ok {
		env = EnvBrowser
	}
	return defaultBases[env][backend]
}

// ParseEnvironment maps a config string to an Environment, defaulting to
// EnvBrowser for unknown values.
func ParseEnvironment(s string) Environment {
	switch Environment(strings.ToLower(strings.TrimSpace(s))) {
	case EnvShell:
		return EnvShell
	case EnvDev:
		return EnvDev
	default:
		return EnvBrowser
	}
}
