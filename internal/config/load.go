package config

import (
	"errors"
	"fmt"
	"os"
)

// Loaded is the outcome of Load: where the config came from, the merged
// values, and anything the user should hear about.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load reads the JSONC file at explicitPath (or the XDG default) over
// Default(). A missing file is not an error; the defaults are validated
// instead so credential warnings still surface.
func Load(explicitPath string) (Loaded, error) {
	path, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}
	loaded := Loaded{Path: path, Config: Default()}

	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		warnings, verr := Validate(loaded.Config)
		if verr != nil {
			return Loaded{}, fmt.Errorf("validate default config: %w", verr)
		}
		loaded.Warnings = append([]Warning{{
			Message: fmt.Sprintf("config file %q not found; using defaults", path),
		}}, warnings...)
		return loaded, nil
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", path, err)
	}

	cfg, warnings, err := Parse(string(content), loaded.Config)
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", path, err)
	}
	loaded.Config = cfg
	loaded.Warnings = warnings
	loaded.Exists = true
	return loaded, nil
}
