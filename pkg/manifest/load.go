package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// LoadConfig reads and validates the server configuration. A missing file
// yields the defaults.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	found, err := decodeOptional(path, &cfg)
	if err != nil {
		return Config{}, err
	}
	if !found {
		return Default(), nil
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadApp reads and validates an application manifest. A missing file yields
// an empty manifest.
func LoadApp(path string) (App, error) {
	var a App
	if _, err := decodeOptional(path, &a); err != nil {
		return App{}, err
	}
	if err := a.Validate(); err != nil {
		return App{}, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

// decodeOptional decodes path into v and reports whether the file exists.
func decodeOptional(path string, v any) (bool, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	dec := toml.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return true, fmt.Errorf("%s: %w", path, err)
	}
	return true, nil
}
