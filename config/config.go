// Package config holds the simulation settings shared by the command-line
// tools. Settings load from JSON or YAML files; command-line flags override
// individual fields.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sarchlab/akita/v4/sim"
	"go.yaml.in/yaml/v3"

	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/emu"
	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/insts"
	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/timing/pipeline"
	"github.com/kithmalamr/MIPS-Computer-Pipeline-Simulator/trace"
)

// Log formats.
const (
	LogFormatText = trace.FormatText
	LogFormatJSON = trace.FormatJSON
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds simulation settings.
type Config struct {
	// Cycles is the number of clock cycles to simulate. Default: 30.
	Cycles uint64 `json:"cycles" yaml:"cycles"`

	// StallPolicy is "bubble" or "flush". Default: bubble.
	StallPolicy string `json:"stall_policy" yaml:"stall_policy"`

	// MemoryWords is the data memory size in 32-bit words. Default: 1024.
	MemoryWords int `json:"memory_words" yaml:"memory_words"`

	// LogFile is the cycle log path. Default: pipeline_log.txt.
	LogFile string `json:"log_file" yaml:"log_file"`

	// LogFormat is "text" or "json". Default: text.
	LogFormat string `json:"log_format" yaml:"log_format"`

	// TraceRegisters is how many registers each cycle log shows. Default: 8.
	TraceRegisters int `json:"trace_registers" yaml:"trace_registers"`

	// ClockGHz is the core clock used to report simulated time. Default: 1.
	ClockGHz float64 `json:"clock_ghz" yaml:"clock_ghz"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Cycles:         30,
		StallPolicy:    pipeline.StallBubble.String(),
		MemoryWords:    emu.DefaultMemoryWords,
		LogFile:        "pipeline_log.txt",
		LogFormat:      LogFormatText,
		TraceRegisters: pipeline.DefaultTraceRegisters,
		ClockGHz:       1,
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// LoadConfig loads a Config from a JSON or YAML file, chosen by extension.
// Fields missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	config := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse config %s", path)
	}

	return config, nil
}

// SaveConfig writes a Config to a JSON or YAML file, chosen by extension.
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return errors.Wrap(err, "failed to serialize config")
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}

	return nil
}

// Validate checks that all values are usable.
func (c *Config) Validate() error {
	if c.Cycles == 0 {
		return errors.Wrap(ErrInvalidConfig, "cycles must be > 0")
	}
	if _, err := pipeline.ParseStallPolicy(c.StallPolicy); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	if c.MemoryWords <= 0 {
		return errors.Wrap(ErrInvalidConfig, "memory_words must be > 0")
	}
	if c.LogFile == "" {
		return errors.Wrap(ErrInvalidConfig, "log_file must be set")
	}
	if c.LogFormat != LogFormatText && c.LogFormat != LogFormatJSON {
		return errors.Wrapf(ErrInvalidConfig, "log_format must be %q or %q, got %q",
			LogFormatText, LogFormatJSON, c.LogFormat)
	}
	if c.TraceRegisters < 1 || c.TraceRegisters > insts.NumRegs {
		return errors.Wrapf(ErrInvalidConfig, "trace_registers must be in [1, %d]", insts.NumRegs)
	}
	if c.ClockGHz <= 0 {
		return errors.Wrap(ErrInvalidConfig, "clock_ghz must be > 0")
	}
	return nil
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// Policy returns the parsed stall policy.
func (c *Config) Policy() (pipeline.StallPolicy, error) {
	return pipeline.ParseStallPolicy(c.StallPolicy)
}

// Freq returns the core clock.
func (c *Config) Freq() sim.Freq {
	return sim.Freq(c.ClockGHz) * sim.GHz
}

// NewMemory allocates data memory of the configured size.
func (c *Config) NewMemory() *emu.Memory {
	return emu.NewMemoryWithSize(c.MemoryWords)
}

// PipelineOptions returns the pipeline options the Config describes. The
// Config must be valid.
func (c *Config) PipelineOptions() []pipeline.PipelineOption {
	policy, _ := c.Policy()
	return []pipeline.PipelineOption{
		pipeline.WithStallPolicy(policy),
		pipeline.WithTraceRegisters(c.TraceRegisters),
	}
}
