package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Level はログレベルを表す
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel は文字列からLevelを返す（大文字小文字を区別しない）
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, true
	case "info", "":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error", "err":
		return LevelError, true
	default:
		return LevelInfo, false
	}
}

// syslogLevel はlogifaceのレベルに変換する
func (l Level) syslogLevel() logiface.Level {
	switch l {
	case LevelDebug:
		return logiface.LevelDebug
	case LevelWarn:
		return logiface.LevelWarning
	case LevelError:
		return logiface.LevelError
	default:
		return logiface.LevelInformational
	}
}

// lockedWriter は1イベント単位で書き込みを直列化する
type lockedWriter struct {
	mu  sync.Mutex
	out io.Writer
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.out.Write(p)
}

// Logger はスレッドセーフなJSONロガー
type Logger struct {
	minLevel atomic.Int32
	log      *logiface.Logger[*stumpy.Event]
}

// Default はデフォルトのロガー
var Default = New(os.Stdout, LevelInfo)

// New は新しいロガーを作成する
func New(out io.Writer, minLevel Level) *Logger {
	l := &Logger{
		log: stumpy.L.New(
			stumpy.L.WithStumpy(
				stumpy.WithWriter(&lockedWriter{out: out}),
				stumpy.WithTimeField("time"),
			),
			// フィルタはminLevelで行う
			stumpy.L.WithLevel(logiface.LevelTrace),
		),
	}
	l.minLevel.Store(int32(minLevel))
	return l
}

// SetLevel はログレベルを設定する
func (l *Logger) SetLevel(level Level) {
	l.minLevel.Store(int32(level))
}

// Enabled は指定レベルが出力されるかどうかを返す
func (l *Logger) Enabled(level Level) bool {
	return level >= Level(l.minLevel.Load())
}

// logf は指定されたレベルでログを出力する
func (l *Logger) logf(level Level, taskID string, format string, args ...any) {
	if !l.Enabled(level) {
		return
	}

	b := l.log.Build(level.syslogLevel())
	if taskID != "" {
		b = b.Str("task", taskID)
	}
	b.Logf(format, args...)
}

// Debug はデバッグログを出力する
func (l *Logger) Debug(taskID string, format string, args ...any) {
	l.logf(LevelDebug, taskID, format, args...)
}

// Info は情報ログを出力する
func (l *Logger) Info(taskID string, format string, args ...any) {
	l.logf(LevelInfo, taskID, format, args...)
}

// Warn は警告ログを出力する
func (l *Logger) Warn(taskID string, format string, args ...any) {
	l.logf(LevelWarn, taskID, format, args...)
}

// Error はエラーログを出力する
func (l *Logger) Error(taskID string, format string, args ...any) {
	l.logf(LevelError, taskID, format, args...)
}

// グローバル関数（デフォルトロガーを使用）

// SetLevel はデフォルトロガーのログレベルを設定する
func SetLevel(level Level) {
	Default.SetLevel(level)
}

// Debug はデバッグログを出力する
func Debug(taskID string, format string, args ...any) {
	Default.Debug(taskID, format, args...)
}

// Info は情報ログを出力する
func Info(taskID string, format string, args ...any) {
	Default.Info(taskID, format, args...)
}

// Warn は警告ログを出力する
func Warn(taskID string, format string, args ...any) {
	Default.Warn(taskID, format, args...)
}

// Error はエラーログを出力する
func Error(taskID string, format string, args ...any) {
	Default.Error(taskID, format, args...)
}
