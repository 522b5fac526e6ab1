package kernel

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.TickPeriod != 10*time.Millisecond {
		t.Fatalf("TickPeriod = %v, want 10ms", cfg.TickPeriod)
	}
	if cfg.Tasks != MaxTasks || cfg.Mutexes != MaxMutexes || cfg.Events != MaxEvents {
		t.Fatalf("limits = %d/%d/%d, want table capacities", cfg.Tasks, cfg.Mutexes, cfg.Events)
	}
	if !cfg.DetectDeadlock {
		t.Fatalf("DetectDeadlock = false, want true")
	}
	if cfg.Level() != logrus.InfoLevel {
		t.Fatalf("Level() = %v, want info", cfg.Level())
	}
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kernel.yaml")
	if err := os.WriteFile(path, []byte("tickPeriod: 1ms\ntasks: 4\nlogLevel: debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.TickPeriod != time.Millisecond || cfg.Tasks != 4 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Mutexes != MaxMutexes {
		t.Fatalf("Mutexes = %d, want default %d", cfg.Mutexes, MaxMutexes)
	}
	if cfg.Level() != logrus.DebugLevel {
		t.Fatalf("Level() = %v, want debug", cfg.Level())
	}
}

func TestLoadConfigRejectsBadLimits(t *testing.T) {
	cases := map[string]string{
		"tasks":   "tasks: 17\n",
		"mutexes": "mutexes: -1\n",
		"events":  "events: 9\n",
		"period":  "tickPeriod: 0s\n",
		"level":   "logLevel: loud\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "kernel.yaml")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadConfig(path); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestCodeStrings(t *testing.T) {
	if s := FailDeadlock.String(); s != "deadlock" {
		t.Fatalf("expected deadlock, got %s", s)
	}
	if s := (CodeUser + 2).String(); s != "user code 2" {
		t.Fatalf("expected user code 2, got %s", s)
	}
	err := &Error{Code: ErrNoSuchMutex, PID: 3, Detail: "mutex 9"}
	if got, want := err.Error(), "kernel: no such mutex (code 5, pid 3): mutex 9"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrNoSuchObject) {
		t.Fatalf("expected ErrNoSuchObject class")
	}
}
