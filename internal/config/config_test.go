package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"frametask/internal/task"
)

func intPtr(v int) *int { return &v }

func TestLoadFileYAML(t *testing.T) {
	content := `
run:
  name: test-run
  description: Test run
  mode: spin
  duration: 10s
  workers: 4
  workload: checksum
  payload_size: 2048
  lock_os_thread: true
  cpu: 0
  overlap_policy: panic
`
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}

	cfg, err := LoadFile(tmpFile)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Run.Name != "test-run" {
		t.Errorf("expected name 'test-run', got '%s'", cfg.Run.Name)
	}
	if cfg.Run.Workers == nil || *cfg.Run.Workers != 4 {
		t.Errorf("expected workers 4, got %v", cfg.Run.Workers)
	}
	if cfg.Run.CPU == nil || *cfg.Run.CPU != 0 {
		t.Errorf("expected cpu 0, got %v", cfg.Run.CPU)
	}
	if !cfg.Run.LockOSThread {
		t.Error("expected lock_os_thread to be enabled")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestLoadFileJSON(t *testing.T) {
	content := `{
  "run": {
    "name": "json-test",
    "mode": "blocking",
    "iterations": 500,
    "workload": "double"
  }
}`
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}

	cfg, err := LoadFile(tmpFile)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Run.Name != "json-test" {
		t.Errorf("expected name 'json-test', got '%s'", cfg.Run.Name)
	}
	if cfg.Run.Iterations == nil || *cfg.Run.Iterations != 500 {
		t.Errorf("expected iterations 500, got %v", cfg.Run.Iterations)
	}
	if cfg.Run.CPU != nil {
		t.Error("expected cpu to be unset")
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := LoadFile("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadFileUnsupportedFormat(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.txt")
	if err := os.WriteFile(tmpFile, []byte("test"), 0644); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}

	_, err := LoadFile(tmpFile)
	if err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestLoadFileMalformedYAML(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(tmpFile, []byte("run: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}

	if _, err := LoadFile(tmpFile); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestToBenchConfig(t *testing.T) {
	cfg := &FileConfig{
		Run: RunConfig{
			Name:             "test",
			Description:      "Test",
			Mode:             "SPIN",
			Duration:         "3s",
			Workers:          intPtr(0),
			Workload:         "checksum",
			PayloadSize:      512,
			LockOSThread:     true,
			CPU:              intPtr(1),
			OverlapPolicy:    "panic",
			ProgressInterval: "250ms",
			LatencySamples:   5000,
		},
	}

	benchCfg, err := cfg.ToBenchConfig()
	if err != nil {
		t.Fatalf("failed to convert config: %v", err)
	}

	if benchCfg.Name != "test" {
		t.Errorf("expected name 'test', got '%s'", benchCfg.Name)
	}
	if benchCfg.Mode != task.ModeSpin {
		t.Errorf("expected spin mode, got %s", benchCfg.Mode)
	}
	if benchCfg.Duration != 3*time.Second {
		t.Errorf("expected duration 3s, got %v", benchCfg.Duration)
	}
	if benchCfg.Iterations != 0 {
		t.Errorf("expected iterations cleared for a timed run, got %d", benchCfg.Iterations)
	}
	if benchCfg.Workers != 0 {
		t.Errorf("expected workers 0, got %d", benchCfg.Workers)
	}
	if benchCfg.PayloadSize != 512 {
		t.Errorf("expected payload 512, got %d", benchCfg.PayloadSize)
	}
	if !benchCfg.LockOSThread || benchCfg.CPU != 1 {
		t.Errorf("expected locked thread on cpu 1, got %v/%d", benchCfg.LockOSThread, benchCfg.CPU)
	}
	if benchCfg.Overlap != task.OverlapPanic {
		t.Errorf("expected panic policy, got %s", benchCfg.Overlap)
	}
	if benchCfg.ProgressInterval != 250*time.Millisecond {
		t.Errorf("expected progress interval 250ms, got %v", benchCfg.ProgressInterval)
	}
	if benchCfg.LatencySamples != 5000 {
		t.Errorf("expected 5000 latency samples, got %d", benchCfg.LatencySamples)
	}
	if err := benchCfg.Validate(); err != nil {
		t.Errorf("expected valid bench config: %v", err)
	}
}

func TestToBenchConfigDefaults(t *testing.T) {
	benchCfg, err := (&FileConfig{}).ToBenchConfig()
	if err != nil {
		t.Fatalf("failed to convert config: %v", err)
	}

	if benchCfg.Name != "default" {
		t.Errorf("expected default name, got '%s'", benchCfg.Name)
	}
	if benchCfg.Workers != 1 {
		t.Errorf("expected 1 worker, got %d", benchCfg.Workers)
	}
	if benchCfg.CPU != -1 {
		t.Errorf("expected cpu -1, got %d", benchCfg.CPU)
	}
}

func TestToBenchConfigPreset(t *testing.T) {
	cfg := &FileConfig{
		Run: RunConfig{
			Preset:     "spin",
			Iterations: intPtr(100),
		},
	}

	benchCfg, err := cfg.ToBenchConfig()
	if err != nil {
		t.Fatalf("failed to convert config: %v", err)
	}

	if benchCfg.Name != "spin" || benchCfg.Mode != task.ModeSpin {
		t.Errorf("expected spin preset, got %s/%s", benchCfg.Name, benchCfg.Mode)
	}
	if benchCfg.Iterations != 100 {
		t.Errorf("expected iterations 100, got %d", benchCfg.Iterations)
	}
}

func TestToBenchConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		run  RunConfig
	}{
		{"invalid duration", RunConfig{Duration: "invalid"}},
		{"invalid progress interval", RunConfig{ProgressInterval: "soon"}},
		{"unknown preset", RunConfig{Preset: "nonexistent"}},
		{"unknown mode", RunConfig{Mode: "yield"}},
		{"unknown overlap policy", RunConfig{OverlapPolicy: "drop"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &FileConfig{Run: tt.run}
			if _, err := cfg.ToBenchConfig(); err == nil {
				t.Error("expected conversion error")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		config   FileConfig
		hasError bool
	}{
		{
			name:     "valid config",
			config:   FileConfig{},
			hasError: false,
		},
		{
			name:     "cpu unpinned",
			config:   FileConfig{Run: RunConfig{CPU: intPtr(-1)}},
			hasError: false,
		},
		{
			name:     "negative iterations",
			config:   FileConfig{Run: RunConfig{Iterations: intPtr(-1)}},
			hasError: true,
		},
		{
			name:     "negative workers",
			config:   FileConfig{Run: RunConfig{Workers: intPtr(-1)}},
			hasError: true,
		},
		{
			name:     "negative payload size",
			config:   FileConfig{Run: RunConfig{PayloadSize: -1}},
			hasError: true,
		},
		{
			name:     "negative latency samples",
			config:   FileConfig{Run: RunConfig{LatencySamples: -1}},
			hasError: true,
		},
		{
			name:     "invalid cpu",
			config:   FileConfig{Run: RunConfig{CPU: intPtr(-2)}},
			hasError: true,
		},
		{
			name:     "unknown mode",
			config:   FileConfig{Run: RunConfig{Mode: "yield"}},
			hasError: true,
		},
		{
			name:     "unknown workload",
			config:   FileConfig{Run: RunConfig{Workload: "sort"}},
			hasError: true,
		},
		{
			name:     "unknown overlap policy",
			config:   FileConfig{Run: RunConfig{OverlapPolicy: "drop"}},
			hasError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.hasError && err == nil {
				t.Error("expected validation error")
			}
			if !tt.hasError && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
			if tt.hasError && err != nil && !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}
