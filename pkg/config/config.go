// Package config loads ferro's optional project configuration file,
// ferro.toml. Every setting has a default matching the
// language's own defaults ("unlimited" for budgets, "enabled" for
// optimizations), so a project with no ferro.toml at all behaves
// exactly like one with every key set to its default.
package config

import (
	"os"

	"github.com/juju/errors"
	"github.com/pelletier/go-toml"
)

// VMConfig controls the resource-limit guards described in spec §5.
// Zero means unlimited: these are operator circuit breakers, not part
// of the language's own semantics. MaxInstructions is applied as the
// VM's step budget; MaxMemorySlots is parsed but not applied anywhere.
type VMConfig struct {
	MaxInstructions int `toml:"max_instructions"`
	MaxMemorySlots  int `toml:"max_memory_slots"`
}

// OptimizerConfig toggles the optimizer's individual passes.
type OptimizerConfig struct {
	ConstantFolding bool `toml:"constant_folding"`
	DeadCode        bool `toml:"dead_code"`
}

// DiagnosticsConfig controls pkg/diagnostics verbosity.
type DiagnosticsConfig struct {
	LogLevel string `toml:"log_level"`
}

// Config is the parsed contents of ferro.toml.
type Config struct {
	VM          VMConfig          `toml:"vm"`
	Optimizer   OptimizerConfig   `toml:"optimizer"`
	Diagnostics DiagnosticsConfig `toml:"diagnostics"`
}

// Default returns the configuration a project with no ferro.toml
// gets: no resource limits, both optimizer passes on, normal logging.
func Default() *Config {
	return &Config{
		Optimizer: OptimizerConfig{
			ConstantFolding: true,
			DeadCode:        true,
		},
		Diagnostics: DiagnosticsConfig{
			LogLevel: "warning",
		},
	}
}

// Load reads and parses ferro.toml at path. A missing file is not an
// error: Load returns Default() unchanged, since absence of the file
// means "use the language's own defaults."
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, errors.Annotatef(err, "reading %s", path)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Annotatef(err, "parsing %s", path)
	}
	return cfg, nil
}
