package task

import "errors"

// ErrSlotBusy は前の作業がFinishされる前にExecuteが呼ばれたことを表す
var ErrSlotBusy = errors.New("task: slot is busy, Finish the previous work first")

// OverlapPolicy はスロット使用中のExecuteの扱いを表す
type OverlapPolicy int

const (
	// OverlapReject は呼び出しを拒否し、警告ログを出す
	OverlapReject OverlapPolicy = iota
	// OverlapPanic はErrSlotBusyでpanicする
	OverlapPanic
)

func (p OverlapPolicy) String() string {
	switch p {
	case OverlapReject:
		return "reject"
	case OverlapPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// ParseOverlapPolicy は文字列からOverlapPolicyを返す
func ParseOverlapPolicy(s string) (OverlapPolicy, bool) {
	switch s {
	case "", "reject":
		return OverlapReject, true
	case "panic":
		return OverlapPanic, true
	default:
		return OverlapReject, false
	}
}

type taskConfig struct {
	overlap      OverlapPolicy
	lockOSThread bool
	cpu          int
}

func defaultTaskConfig() taskConfig {
	return taskConfig{
		overlap: OverlapReject,
		cpu:     -1,
	}
}

// Option はTaskの設定を変更する
type Option func(cfg taskConfig) taskConfig

// WithOverlapPolicy はスロット使用中のExecuteの扱いを設定する
func WithOverlapPolicy(policy OverlapPolicy) Option {
	return func(cfg taskConfig) taskConfig {
		cfg.overlap = policy
		return cfg
	}
}

// WithLockOSThread はワーカーゴルーチンを専用のOSスレッドに固定する
func WithLockOSThread() Option {
	return func(cfg taskConfig) taskConfig {
		cfg.lockOSThread = true
		return cfg
	}
}

// WithCPU はワーカーのOSスレッドを指定CPUに固定する（Linuxのみ）
// WithLockOSThreadを暗黙に有効化する。負の値で無効
func WithCPU(cpu int) Option {
	return func(cfg taskConfig) taskConfig {
		cfg.cpu = cpu
		if cpu >= 0 {
			cfg.lockOSThread = true
		}
		return cfg
	}
}
