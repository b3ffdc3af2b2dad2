// Package config provides configuration types for the MCP aggregating proxy.
//
// A Config is loaded once at startup and never mutated afterward; handlers
// share it read-only. There is no hot reload and no runtime-mutable server
// list -- adding or removing a downstream requires a restart.
package config

import (
	"encoding/json"
)

// ServerKind discriminates the transport a configured downstream server
// speaks.
type ServerKind string

const (
	// KindStdio spawns the server as a child process and speaks newline
	// delimited JSON-RPC over its stdin/stdout.
	KindStdio ServerKind = "stdio"
	// KindSSE connects to the server over outbound HTTP with a streamed
	// server-sent-events response body.
	KindSSE ServerKind = "sse"
	// KindWS connects to the server over a WebSocket.
	KindWS ServerKind = "ws"
)

// Config is the top-level configuration for the proxy.
type Config struct {
	// Port is the TCP port the proxy's own JSON-RPC HTTP listener binds to.
	Port int `yaml:"port" mapstructure:"port" validate:"required,min=1,max=65535"`

	// Timeout configures the two deadlines applied to every downstream
	// JSON-RPC request.
	Timeout TimeoutConfig `yaml:"timeout" mapstructure:"timeout"`

	// Servers maps a server name to its spec. Server names are compared by
	// exact byte equality everywhere in the proxy (I5) -- never normalized.
	Servers map[string]ServerSpec `yaml:"servers" mapstructure:"servers" validate:"dive"`

	// ServerOrder preserves the order server names appeared in the config
	// file. Go maps have no iteration order, and the dispatcher's
	// bare-name fallback and the `list` CLI subcommand both need a stable,
	// file-order walk, so the loader populates this alongside Servers.
	ServerOrder []string `yaml:"-" mapstructure:"-"`
}

// TimeoutConfig configures the list and call deadlines, in seconds.
// Defaults (120s / 60s) match the original reference implementation.
type TimeoutConfig struct {
	// List is the deadline, in seconds, for a tools/list or resources/list
	// request issued to a downstream during the startup probe.
	List int `yaml:"list" mapstructure:"list" validate:"omitempty,min=1"`

	// Call is the deadline, in seconds, for a tools/call request issued to
	// a downstream by the dispatcher.
	Call int `yaml:"call" mapstructure:"call" validate:"omitempty,min=1"`
}

const (
	defaultListTimeoutSeconds = 120
	defaultCallTimeoutSeconds = 60
)

// ServerSpec describes one configured downstream server. Exactly one of
// the kind-specific field groups is populated, discriminated by Type; the
// validator enforces the mutual exclusion the same way the fields aren't
// statically split into a Go sum type (mapstructure has no clean way to
// decode a tagged union into separate struct types from a flat YAML map).
type ServerSpec struct {
	// Type selects the transport: "stdio", "sse", or "ws".
	Type ServerKind `yaml:"type" mapstructure:"type" validate:"required,oneof=stdio sse ws"`

	// --- stdio ---

	// Command is the executable to spawn.
	Command string `yaml:"command" mapstructure:"command"`
	// Args are the arguments passed to Command.
	Args []string `yaml:"args" mapstructure:"args"`
	// EnvVars is flattened directly into the server entry in YAML (not
	// nested under another key) and overlays the parent process's
	// environment when the Stdio transport is opened.
	EnvVars map[string]string `yaml:"env_vars" mapstructure:"env_vars"`

	// --- sse / ws ---

	// URL is the downstream endpoint.
	URL string `yaml:"url" mapstructure:"url"`
	// Headers are sent with the connection handshake (SSE's initial GET,
	// WS's upgrade request).
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// DefaultArgs is reserved for future use; it is accepted and carried
	// but not otherwise interpreted by this version of the proxy.
	DefaultArgs json.RawMessage `yaml:"default_args" mapstructure:"default_args"`
}

// SetDefaults fills in the timeout defaults when the config omits them.
func (c *Config) SetDefaults() {
	if c.Timeout.List == 0 {
		c.Timeout.List = defaultListTimeoutSeconds
	}
	if c.Timeout.Call == 0 {
		c.Timeout.Call = defaultCallTimeoutSeconds
	}
}
