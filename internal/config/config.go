package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"frametask/internal/bench"
	"frametask/internal/task"

	"gopkg.in/yaml.v3"
)

// ErrInvalid は設定値が不正であることを表す
var ErrInvalid = errors.New("config: invalid value")

// FileConfig は設定ファイルの構造
type FileConfig struct {
	Run RunConfig `yaml:"run" json:"run"`
}

// RunConfig は計測設定
// 0が有効な値になる項目はポインタで未指定と区別する
type RunConfig struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Preset      string `yaml:"preset" json:"preset"`
	Mode        string `yaml:"mode" json:"mode"`
	Iterations  *int   `yaml:"iterations" json:"iterations"`
	Duration    string `yaml:"duration" json:"duration"`
	Workers     *int   `yaml:"workers" json:"workers"`
	Workload    string `yaml:"workload" json:"workload"`
	PayloadSize int    `yaml:"payload_size" json:"payload_size"`

	LockOSThread  bool   `yaml:"lock_os_thread" json:"lock_os_thread"`
	CPU           *int   `yaml:"cpu" json:"cpu"`
	OverlapPolicy string `yaml:"overlap_policy" json:"overlap_policy"`

	ProgressInterval string `yaml:"progress_interval" json:"progress_interval"`
	LatencySamples   int    `yaml:"latency_samples" json:"latency_samples"`
}

// LoadFile は設定ファイルを読み込む
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config FileConfig
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	return &config, nil
}

// ToBenchConfig はFileConfigをbench.Configに変換する
// presetが指定されていればそれを、なければbench.DefaultConfigを土台にする
func (f *FileConfig) ToBenchConfig() (bench.Config, error) {
	rc := f.Run

	config := bench.DefaultConfig()
	if rc.Preset != "" {
		p, ok := bench.GetPreset(rc.Preset)
		if !ok {
			return config, fmt.Errorf("%w: unknown preset %q", ErrInvalid, rc.Preset)
		}
		config = p
	}

	if rc.Name != "" {
		config.Name = rc.Name
	}
	if rc.Description != "" {
		config.Description = rc.Description
	}
	if rc.Mode != "" {
		mode, ok := task.ParseMode(strings.ToLower(rc.Mode))
		if !ok {
			return config, fmt.Errorf("%w: unknown mode %q", ErrInvalid, rc.Mode)
		}
		config.Mode = mode
	}
	if rc.Duration != "" {
		d, err := time.ParseDuration(rc.Duration)
		if err != nil {
			return config, fmt.Errorf("invalid duration: %w", err)
		}
		config.Duration = d
		// 時間指定のみの場合は回数で打ち切らない
		if rc.Iterations == nil {
			config.Iterations = 0
		}
	}
	if rc.Iterations != nil {
		config.Iterations = *rc.Iterations
	}
	if rc.Workers != nil {
		config.Workers = *rc.Workers
	}
	if rc.Workload != "" {
		config.Workload = rc.Workload
	}
	if rc.PayloadSize > 0 {
		config.PayloadSize = rc.PayloadSize
	}

	// OSスレッド設定
	if rc.LockOSThread {
		config.LockOSThread = true
	}
	if rc.CPU != nil {
		config.CPU = *rc.CPU
	}
	if rc.OverlapPolicy != "" {
		policy, ok := task.ParseOverlapPolicy(strings.ToLower(rc.OverlapPolicy))
		if !ok {
			return config, fmt.Errorf("%w: unknown overlap policy %q", ErrInvalid, rc.OverlapPolicy)
		}
		config.Overlap = policy
	}
	if rc.ProgressInterval != "" {
		d, err := time.ParseDuration(rc.ProgressInterval)
		if err != nil {
			return config, fmt.Errorf("invalid progress interval: %w", err)
		}
		config.ProgressInterval = d
	}
	if rc.LatencySamples > 0 {
		config.LatencySamples = rc.LatencySamples
	}

	return config, nil
}

// Validate は設定を検証する
func (f *FileConfig) Validate() error {
	rc := f.Run

	if rc.Iterations != nil && *rc.Iterations < 0 {
		return fmt.Errorf("%w: iterations must be non-negative", ErrInvalid)
	}
	if rc.Workers != nil && *rc.Workers < 0 {
		return fmt.Errorf("%w: workers must be non-negative", ErrInvalid)
	}
	if rc.PayloadSize < 0 {
		return fmt.Errorf("%w: payload_size must be non-negative", ErrInvalid)
	}
	if rc.LatencySamples < 0 {
		return fmt.Errorf("%w: latency_samples must be non-negative", ErrInvalid)
	}
	if rc.CPU != nil && *rc.CPU < -1 {
		return fmt.Errorf("%w: cpu must be -1 or a CPU index", ErrInvalid)
	}
	if rc.Mode != "" {
		if _, ok := task.ParseMode(strings.ToLower(rc.Mode)); !ok {
			return fmt.Errorf("%w: mode must be blocking or spin", ErrInvalid)
		}
	}
	if rc.Workload != "" {
		if _, ok := bench.GetWorkload(rc.Workload); !ok {
			return fmt.Errorf("%w: workload must be one of %v", ErrInvalid, bench.ListWorkloads())
		}
	}
	if rc.OverlapPolicy != "" {
		if _, ok := task.ParseOverlapPolicy(strings.ToLower(rc.OverlapPolicy)); !ok {
			return fmt.Errorf("%w: overlap_policy must be reject or panic", ErrInvalid)
		}
	}

	return nil
}
