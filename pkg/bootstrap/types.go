// Package bootstrap loads the plugin bootstrap file: the plugin callsign and
// the method registries it serves.
package bootstrap

import (
	"fmt"

	"github.com/morezero/plugin-dispatcher/pkg/semver"
)

// RegistryConfig describes one method registry. Exactly one of Versions or
// Range selects the interface majors it answers for.
type RegistryConfig struct {
	Versions []int   `json:"versions,omitempty" yaml:"versions,omitempty"`
	Range    string  `json:"range,omitempty" yaml:"range,omitempty"`
	// Inherit copies the default registry's methods into this one.
	Inherit bool `json:"inherit,omitempty" yaml:"inherit,omitempty"`
}

// VersionSet returns the majors selected by the entry.
func (r RegistryConfig) VersionSet() (semver.VersionSet, error) {
	switch {
	case r.Range != "" && len(r.Versions) > 0:
		return semver.VersionSet{}, fmt.Errorf("%s - registry sets both versions and range %q", typesLogPrefix, r.Range)
	case r.Range != "":
		return semver.Range(r.Range)
	case len(r.Versions) > 0:
		majors := make([]uint8, 0, len(r.Versions))
		for _, v := range r.Versions {
			if v < 0 || v >= int(semver.AnyMajor) {
				return semver.VersionSet{}, fmt.Errorf("%s - version %d out of range", typesLogPrefix, v)
			}
			majors = append(majors, uint8(v))
		}
		return semver.Versions(majors...), nil
	}
	return semver.VersionSet{}, fmt.Errorf("%s - registry selects no versions", typesLogPrefix)
}

// PluginConfig is the root bootstrap configuration.
type PluginConfig struct {
	Name        string           `json:"name" yaml:"name"`
	Version     string           `json:"version" yaml:"version"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
	Callsign    string           `json:"callsign" yaml:"callsign"`
	Registries  []RegistryConfig `json:"registries" yaml:"registries"`
}

const typesLogPrefix = "bootstrap:types"

// ResolvedRegistry is a RegistryConfig with its version set parsed.
type ResolvedRegistry struct {
	Versions semver.VersionSet
	Inherit  bool
}

// ResolvedPlugin is a validated PluginConfig. The first registry is the
// default one; Extra lists the rest in declaration order.
type ResolvedPlugin struct {
	name     string
	version  string
	callsign string
	defaults semver.VersionSet
	extra    []ResolvedRegistry
}

// Name returns the bootstrap config name.
func (rp *ResolvedPlugin) Name() string {
	return rp.name
}

// Version returns the bootstrap config version.
func (rp *ResolvedPlugin) Version() string {
	return rp.version
}

// Callsign returns the plugin callsign.
func (rp *ResolvedPlugin) Callsign() string {
	return rp.callsign
}

// DefaultVersions returns the versions of the default registry.
func (rp *ResolvedPlugin) DefaultVersions() semver.VersionSet {
	return rp.defaults
}

// Extra returns the additional registries.
func (rp *ResolvedPlugin) Extra() []ResolvedRegistry {
	return rp.extra
}
