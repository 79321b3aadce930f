//go:build unix

package crypt

import "syscall"

func lockMemory(b []byte) {
	if len(b) == 0 {
		return
	}
	_ = syscall.Mlock(b)
}

func unlockMemory(b []byte) {
	if len(b) == 0 {
		return
	}
	_ = syscall.Munlock(b)
}
