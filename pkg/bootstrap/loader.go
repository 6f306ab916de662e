package bootstrap

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/morezero/plugin-dispatcher/pkg/dispatcher"
	"github.com/morezero/plugin-dispatcher/pkg/handler"
)

const logPrefix = "bootstrap:loader"

// EnvBootstrapFile names the environment variable holding the bootstrap path.
const EnvBootstrapFile = "PLUGIN_BOOTSTRAP_FILE"

var defaultPaths = []string{
	"config/plugin.yaml",
	"config/plugin.json",
	"plugin.yaml",
	"plugin.json",
}

// LoadPluginConfig loads the bootstrap config from file paths or environment.
// It tries any paths passed in, then PLUGIN_BOOTSTRAP_FILE, then the defaults.
// Files ending in .yaml or .yml are read as YAML, anything else as JSON.
// Missing fields are filled from GetDefaultPluginConfig.
func LoadPluginConfig(paths ...string) (*PluginConfig, error) {
	all := make([]string, 0, len(paths)+len(defaultPaths)+1)
	for _, p := range paths {
		if p != "" {
			all = append(all, p)
		}
	}
	if envPath := os.Getenv(EnvBootstrapFile); envPath != "" {
		all = append(all, envPath)
	}
	all = append(all, defaultPaths...)

	for _, p := range all {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}

		cfg, err := parse(p, data)
		if err != nil {
			slog.Warn(fmt.Sprintf("%s - Failed to parse bootstrap file %s: %v", logPrefix, p, err))
			continue
		}

		slog.Info(fmt.Sprintf("%s - Loaded bootstrap config from %s", logPrefix, p))
		return MergePluginConfigs(GetDefaultPluginConfig(), cfg), nil
	}

	slog.Info(fmt.Sprintf("%s - Using default bootstrap config", logPrefix))
	return GetDefaultPluginConfig(), nil
}

func parse(path string, data []byte) (*PluginConfig, error) {
	var cfg PluginConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// GetDefaultPluginConfig returns the fallback configuration: one registry
// answering for version 1.
func GetDefaultPluginConfig() *PluginConfig {
	return &PluginConfig{
		Name:        "plugin-dispatcher",
		Version:     "1.0.0",
		Description: "Default plugin bootstrap configuration",
		Callsign:    "plugin",
		Registries:  []RegistryConfig{{Versions: []int{1}}},
	}
}

// MergePluginConfigs overlays the non-empty fields of override onto base.
// Registries are replaced as a whole.
func MergePluginConfigs(base, override *PluginConfig) *PluginConfig {
	merged := *base
	if override.Name != "" {
		merged.Name = override.Name
	}
	if override.Version != "" {
		merged.Version = override.Version
	}
	if override.Description != "" {
		merged.Description = override.Description
	}
	if override.Callsign != "" {
		merged.Callsign = override.Callsign
	}
	if len(override.Registries) > 0 {
		merged.Registries = append([]RegistryConfig(nil), override.Registries...)
	}
	return &merged
}

// CreateResolvedPlugin validates cfg and parses every registry's versions.
func CreateResolvedPlugin(cfg *PluginConfig) (*ResolvedPlugin, error) {
	var errs []error
	if cfg.Callsign == "" {
		errs = append(errs, errors.New("callsign is required"))
	}
	if len(cfg.Registries) == 0 {
		errs = append(errs, errors.New("at least one registry is required"))
	}

	rp := &ResolvedPlugin{name: cfg.Name, version: cfg.Version, callsign: cfg.Callsign}
	for i, reg := range cfg.Registries {
		versions, err := reg.VersionSet()
		if err != nil {
			errs = append(errs, fmt.Errorf("registry %d: %w", i, err))
			continue
		}
		if versions.IsEmpty() {
			errs = append(errs, fmt.Errorf("registry %d selects no versions", i))
			continue
		}
		if i == 0 {
			if reg.Inherit {
				errs = append(errs, errors.New("the default registry cannot inherit"))
			}
			rp.defaults = versions
			continue
		}
		rp.extra = append(rp.extra, ResolvedRegistry{Versions: versions, Inherit: reg.Inherit})
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%s - invalid bootstrap config: %w", logPrefix, errors.Join(errs...))
	}
	return rp, nil
}

// Install creates the extra registries on d, after the default one. An
// inheriting registry copies the default registry's methods as they are at
// the time of the call.
func (rp *ResolvedPlugin) Install(d *dispatcher.JSONRPC) []*handler.Handler {
	created := make([]*handler.Handler, 0, len(rp.extra))
	for _, reg := range rp.extra {
		if reg.Inherit {
			created = append(created, d.CreateHandlerFrom(reg.Versions, d.Handler()))
		} else {
			created = append(created, d.CreateHandler(reg.Versions))
		}
		slog.Info(fmt.Sprintf("%s - Installed registry for versions %s (inherit=%v)", logPrefix, reg.Versions, reg.Inherit))
	}
	return created
}
