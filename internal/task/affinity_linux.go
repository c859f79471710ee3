//go:build linux

package task

import "golang.org/x/sys/unix"

// pinToCPU は呼び出し元のOSスレッドを指定CPUに固定する
// runtime.LockOSThread済みのゴルーチンから呼ぶこと
func pinToCPU(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}
