// Package manifest loads desired-state manifests: lists of cron jobs and
// tunables declared in YAML, TOML or Lua.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/dokzlo13/truenasctl/internal/reconcile/cronjob"
	"github.com/dokzlo13/truenasctl/internal/reconcile/tunable"
)

// Format is a manifest encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatLua  Format = "lua"
)

// Manifest is a set of desired resources, reconciled in declaration order.
type Manifest struct {
	CronJobs []cronjob.Desired `yaml:"cronjobs" toml:"cronjobs"`
	Tunables []tunable.Desired `yaml:"tunables" toml:"tunables"`
}

// Len returns the number of declared resources.
func (m *Manifest) Len() int {
	return len(m.CronJobs) + len(m.Tunables)
}

// FormatOf infers the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".lua":
		return FormatLua, nil
	}
	return "", fmt.Errorf("unknown manifest format for %s (want .yaml, .yml, .toml or .lua)", path)
}

// Load reads a manifest file.
func Load(path string) (*Manifest, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	m, err := Parse(format, path, data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes manifest data. name is used in Lua error positions.
// YAML and TOML are taken verbatim: cron commands routinely carry shell
// ${...} expansions that belong to the appliance, not to us. Lua manifests
// read the environment explicitly through env().
func Parse(format Format, name string, data []byte) (*Manifest, error) {
	var m Manifest

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, err
		}
	case FormatTOML:
		meta, err := toml.Decode(string(data), &m)
		if err != nil {
			return nil, err
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown keys: %v", undecoded)
		}
	case FormatLua:
		return parseLua(name, string(data))
	default:
		return nil, fmt.Errorf("unsupported manifest format %q", format)
	}

	return &m, nil
}
