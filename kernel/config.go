package kernel

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	// MaxTasks is the capacity of the task table, not counting the idle task.
	MaxTasks = 16
	// MaxMutexes is the capacity of the mutex table.
	MaxMutexes = 8
	// MaxEvents is the capacity of the event table.
	MaxEvents = 8

	// MinPriority is the least urgent priority a task may be created with.
	// 0 is the most urgent.
	MinPriority Priority = 10
	// IdlePriority is reserved for the idle task and is never queued.
	IdlePriority = MinPriority + 1

	levels = int(MinPriority) + 1
)

//go:embed defaults.yaml
var rawDefaults []byte

// Config holds the tunable parts of the kernel.
type Config struct {
	TickPeriod     time.Duration `yaml:"tickPeriod"`
	LogLevel       string        `yaml:"logLevel"`
	DetectDeadlock bool          `yaml:"detectDeadlock"`

	Tasks   int `yaml:"tasks"`
	Mutexes int `yaml:"mutexes"`
	Events  int `yaml:"events"`
}

var ErrInvalidConfig = errors.New("invalid kernel config")

var defaults Config

func init() {
	if err := yaml.Unmarshal(rawDefaults, &defaults); err != nil {
		panic(err)
	}
	if err := defaults.Validate(); err != nil {
		panic(err)
	}
}

// DefaultConfig returns the embedded default configuration.
func DefaultConfig() Config {
	return defaults
}

// LoadConfig reads a YAML file and overlays it on the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks that the limits fit the fixed tables.
func (c Config) Validate() error {
	if c.TickPeriod <= 0 {
		return fmt.Errorf("%w: tickPeriod %v", ErrInvalidConfig, c.TickPeriod)
	}
	if c.Tasks < 1 || c.Tasks > MaxTasks {
		return fmt.Errorf("%w: tasks %d not in [1,%d]", ErrInvalidConfig, c.Tasks, MaxTasks)
	}
	if c.Mutexes < 0 || c.Mutexes > MaxMutexes {
		return fmt.Errorf("%w: mutexes %d not in [0,%d]", ErrInvalidConfig, c.Mutexes, MaxMutexes)
	}
	if c.Events < 0 || c.Events > MaxEvents {
		return fmt.Errorf("%w: events %d not in [0,%d]", ErrInvalidConfig, c.Events, MaxEvents)
	}
	if c.LogLevel != "" {
		if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// Level returns the configured log level, defaulting to info.
func (c Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
