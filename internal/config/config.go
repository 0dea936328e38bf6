// Package config loads the tool-level settings that accompany a
// resolve (minimum stability, prefer-lowest, preferred versions, repo
// priorities) from a TOML config file, the way the teacher's own
// manifest/tool-config layer (legacy/dep's toml.go, registry_config.go)
// reads its TOML documents: via a *toml.Tree and explicit queries
// rather than a raw struct-tag Unmarshal. Mistyped preferred-versions
// entries, malformed repositories items and an unknown
// minimum-stability value produce an error; unknown keys and
// top-level keys of the wrong type are ignored.
package config

import (
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/shyim/pox-sub000/internal/semver"
)

// Config is the resolver's tool-level configuration. It never affects
// the SAT semantics itself (spec.md's core stays pure); it only
// parameterizes the Policy and Request the caller builds before
// invoking the solver.
type Config struct {
	MinimumStability  semver.Stability
	PreferStable      bool
	PreferLowest      bool
	PreferredVersions map[string]string // package name -> pinned version
	RepositoryOrder   []string          // repo names in priority order, highest first
}

// Default returns the resolver's out-of-the-box configuration: stable
// minimum stability, prefer-stable, prefer-highest.
func Default() *Config {
	return &Config{
		MinimumStability:  semver.StabilityStable,
		PreferStable:      true,
		PreferredVersions: make(map[string]string),
	}
}

// Load reads and validates a TOML config document from path.
func Load(path string) (*Config, error) {
	tree, err := toml.LoadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load config file %q", path)
	}
	return FromTree(tree)
}

// FromTree builds a Config from an already-parsed TOML tree, the way
// legacy/dep's toml.go builds its rawProject records by querying a
// *toml.Tree rather than unmarshalling directly into the target type.
func FromTree(tree *toml.Tree) (*Config, error) {
	cfg := Default()

	if v, ok := tree.Get("minimum-stability").(string); ok {
		st, err := semver.ParseStabilityFlag(v)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid minimum-stability %q", v)
		}
		cfg.MinimumStability = st
	}

	if v, ok := tree.Get("prefer-stable").(bool); ok {
		cfg.PreferStable = v
	}
	if v, ok := tree.Get("prefer-lowest").(bool); ok {
		cfg.PreferLowest = v
	}

	if sub, ok := tree.Get("preferred-versions").(*toml.Tree); ok {
		for _, name := range sub.Keys() {
			v, ok := sub.Get(name).(string)
			if !ok {
				return nil, errors.Errorf("preferred-versions.%s must be a string", name)
			}
			cfg.PreferredVersions[name] = v
		}
	}

	if raw, ok := tree.Get("repositories").([]interface{}); ok {
		for _, item := range raw {
			name, ok := item.(string)
			if !ok {
				return nil, errors.New("repositories must be an array of strings")
			}
			cfg.RepositoryOrder = append(cfg.RepositoryOrder, name)
		}
	}

	return cfg, nil
}
