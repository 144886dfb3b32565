//go:build !darwin && !linux

package main

func performanceCores() int { return 0 }

func systemMemory() (total, available uint64) { return 0, 0 }
