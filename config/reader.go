package config

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"

	"go.viam.com/regsynth/logging"
	"go.viam.com/regsynth/utils"
)

// Read reads a config from the given file, expanding environment variables first.
func Read(filePath string, logger logging.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, utils.NewIOError(filePath, err)
	}
	return FromReader(filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
// The config is JSON5, so comments and trailing commas are allowed; unknown
// fields are not. Empty fields get their defaults and the result is validated.
func FromReader(originalPath string, r io.Reader, logger logging.Logger) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, utils.NewIOError(originalPath, err)
	}
	var raw interface{}
	if err := json5.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "cannot unmarshal config %q", originalPath)
	}
	// re-encoded as plain JSON so unknown fields can be rejected
	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot unmarshal config %q", originalPath)
	}

	cfg := Config{ConfigFilePath: originalPath}
	dec := json.NewDecoder(bytes.NewReader(normalized))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.Wrapf(err, "cannot unmarshal config %q", originalPath)
	}
	cfg.ConfigFilePath = originalPath
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %q", originalPath)
	}
	logger.Debugw("read config", "path", originalPath, "input", cfg.Input, "output_dir", cfg.OutputDir)
	return &cfg, nil
}
