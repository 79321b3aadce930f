//go:build !unix

package crypt

func lockMemory(b []byte)   {}
func unlockMemory(b []byte) {}
