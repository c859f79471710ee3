package bench

import (
	"fmt"
	"hash/crc32"
	"slices"

	"frametask/internal/task"
)

// Workload はラウンドトリップ1回分の作業と、その期待値の生成方法
type Workload struct {
	Name        string
	Description string

	// Work はワーカーで実行される
	Work task.Work
	// Param はseq番目の入力を作る。sizeはペイロードのバイト数
	Param func(seq uint64, size int) any
	// Expect は呼び出し側で計算した期待値を返す
	Expect func(param any) any
}

var workloads = map[string]Workload{
	"double": {
		Name:        "double",
		Description: "Doubles an integer parameter",
		Work:        doubleWork,
		Param:       func(seq uint64, _ int) any { return int(seq) },
		Expect:      doubleWork,
	},
	"checksum": {
		Name:        "checksum",
		Description: "CRC-32 of a generated payload",
		Work:        checksumWork,
		Param:       payload,
		Expect:      checksumWork,
	},
	"noop": {
		Name:        "noop",
		Description: "Empty work, measures handoff overhead only",
		Work:        func(any) any { return nil },
		Param:       func(uint64, int) any { return nil },
		Expect:      func(any) any { return nil },
	},
}

// GetWorkload は名前からワークロードを取得する
func GetWorkload(name string) (Workload, bool) {
	w, ok := workloads[name]
	return w, ok
}

// ListWorkloads は利用可能なワークロード名を返す
func ListWorkloads() []string {
	names := make([]string, 0, len(workloads))
	for name := range workloads {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func doubleWork(p any) any {
	return p.(int) * 2
}

func checksumWork(p any) any {
	return crc32.ChecksumIEEE(p.([]byte))
}

// payload はseqから決定的なバイト列を作る
func payload(seq uint64, size int) any {
	if size <= 0 {
		size = 1
	}
	buf := make([]byte, size)
	x := seq*0x9e3779b97f4a7c15 + 1
	for i := range buf {
		// xorshift
		x ^= x << 13
		x ^= x >> 7
		x ^= x << 17
		buf[i] = byte(x)
	}
	return buf
}

// formatValue はイベント用に値を短く整形する
func formatValue(v any) string {
	s := fmt.Sprintf("%v", v)
	if len(s) > 64 {
		return s[:61] + "..."
	}
	return s
}
