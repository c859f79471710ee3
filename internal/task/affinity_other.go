//go:build !linux

package task

func pinToCPU(int) error {
	return nil
}
