package bench

import (
	"time"

	"frametask/internal/task"
)

// QuickPreset はクイックテスト用の設定を返す
// 短時間での動作確認用
func QuickPreset() Config {
	config := DefaultConfig()
	config.Name = "quick"
	config.Description = "Quick verification with a few thousand round-trips"
	config.Iterations = 5000
	return config
}

// BlockingPreset は条件変数モードの計測設定を返す
func BlockingPreset() Config {
	config := DefaultConfig()
	config.Name = "blocking"
	config.Description = "Condition variable handoff with checksum payloads"
	config.Mode = task.ModeBlocking
	config.Iterations = 0 // 時間のみで打ち切る
	config.Duration = 5 * time.Second
	config.Workload = "checksum"
	config.PayloadSize = 4096
	return config
}

// SpinPreset はスピンモードの計測設定を返す
// ワーカーはOSスレッドに固定する
func SpinPreset() Config {
	config := BlockingPreset()
	config.Name = "spin"
	config.Description = "Spin handoff on a locked OS thread with checksum payloads"
	config.Mode = task.ModeSpin
	config.LockOSThread = true
	return config
}

// FanoutPreset は1つの処理をCPU数のTaskに分割する設定を返す
func FanoutPreset() Config {
	config := DefaultConfig()
	config.Name = "fanout"
	config.Description = "One round split across a task per CPU"
	config.Iterations = 0
	config.Duration = 5 * time.Second
	config.Workers = 0 // CPU数
	config.Workload = "checksum"
	config.PayloadSize = 16 * 1024
	return config
}

// StressPreset は高負荷設定を返す
// 全CPUでスピンし、大きなペイロードを使う
func StressPreset() Config {
	config := DefaultConfig()
	config.Name = "stress"
	config.Description = "Spin handoff on every CPU with large payloads"
	config.Mode = task.ModeSpin
	config.Iterations = 0
	config.Duration = 10 * time.Second
	config.Workers = 0
	config.Workload = "checksum"
	config.PayloadSize = 64 * 1024
	config.LockOSThread = true
	return config
}

var presets = map[string]func() Config{
	"quick":    QuickPreset,
	"blocking": BlockingPreset,
	"spin":     SpinPreset,
	"fanout":   FanoutPreset,
	"stress":   StressPreset,
}

// GetPreset は名前からプリセットを取得する
func GetPreset(name string) (Config, bool) {
	if fn, ok := presets[name]; ok {
		return fn(), true
	}
	return Config{}, false
}

// ListPresets は利用可能なプリセット名を返す
func ListPresets() []string {
	return []string{"quick", "blocking", "spin", "fanout", "stress"}
}
