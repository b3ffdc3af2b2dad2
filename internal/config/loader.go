package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// envPrefix is the prefix for environment variable overrides, e.g.
// MCP_PROXY_PORT overrides port, MCP_PROXY_TIMEOUT_LIST overrides timeout.list.
const envPrefix = "MCP_PROXY"

// newViper builds a fresh viper instance scoped to one LoadConfig call, so
// repeated loads (as in tests) don't leak state through the global viper
// singleton the way the teacher's package-level InitViper does.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("port")
	_ = v.BindEnv("timeout.list")
	_ = v.BindEnv("timeout.call")
	return v
}

// LoadConfig reads, merges, defaults, and validates the configuration at
// path. The servers map's file order is recovered separately, since neither
// viper nor mapstructure preserves YAML mapping key order.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	v := newViper()
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// viper lowercases map keys; restore server names and env_vars keys as written.
	var raw struct {
		Servers map[string]struct {
			EnvVars map[string]string `yaml:"env_vars"`
		} `yaml:"servers"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse servers: %w", err)
	}
	servers := make(map[string]ServerSpec, len(raw.Servers))
	for name, r := range raw.Servers {
		spec := cfg.Servers[strings.ToLower(name)]
		spec.EnvVars = r.EnvVars
		servers[name] = spec
	}
	cfg.Servers = servers

	cfg.SetDefaults()

	order, err := serverOrder(data)
	if err != nil {
		return nil, fmt.Errorf("parse servers order: %w", err)
	}
	cfg.ServerOrder = order

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// serverOrder walks the raw YAML document to recover the order in which
// server names appear under the top-level "servers" key.
func serverOrder(data []byte) ([]string, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 {
		return nil, nil
	}

	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, nil
	}

	for i := 0; i+1 < len(doc.Content); i += 2 {
		key := doc.Content[i]
		if key.Value != "servers" {
			continue
		}
		serversNode := doc.Content[i+1]
		if serversNode.Kind != yaml.MappingNode {
			return nil, nil
		}
		names := make([]string, 0, len(serversNode.Content)/2)
		for j := 0; j+1 < len(serversNode.Content); j += 2 {
			names = append(names, serversNode.Content[j].Value)
		}
		return names, nil
	}

	return nil, nil
}
