package config

import (
	"path/filepath"
	"strings"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"
	"gopkg.in/yaml.v3"

	"github.com/viam-labs/superquadric-model/logging"
)

// Read loads and validates a configuration file. Files ending in .yaml or .yml are read as YAML,
// anything else as JSON5. Environment references such as ${HOME} are expanded first. Keys that
// are not set keep their defaults.
func Read(path string, logger logging.Logger) (*Config, error) {
	data, err := envsubst.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read config file %q", path)
	}
	return FromBytes(data, filepath.Ext(path), logger)
}

// FromBytes parses a configuration in the format named by ext.
func FromBytes(data []byte, ext string, logger logging.Logger) (*Config, error) {
	raw := map[string]interface{}{}
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrap(err, "cannot parse YAML config")
		}
	default:
		if err := json5.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrap(err, "cannot parse JSON config")
		}
	}

	cfg := Default()
	unused, err := decode(raw, cfg)
	if err != nil {
		return nil, err
	}
	if len(unused) > 0 {
		logger.Warnw("ignoring unknown config keys", "keys", unused)
	}
	if err := cfg.Validate(logger); err != nil {
		return nil, err
	}
	return cfg, nil
}
