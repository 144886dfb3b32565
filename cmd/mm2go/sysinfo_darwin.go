//go:build darwin

package main

import "syscall"

// performanceCores returns the number of performance cores on Apple
// Silicon, falling back to the physical core count.
func performanceCores() int {
	for _, name := range []string{"hw.perflevel0.physicalcpu", "hw.physicalcpu"} {
		if n := sysctlUint(name); n > 0 {
			return int(n)
		}
	}
	return 0
}

// systemMemory returns total memory and an estimate of 75% of it as
// available.
func systemMemory() (total, available uint64) {
	total = sysctlUint("hw.memsize")
	return total, total / 4 * 3
}

// sysctlUint reads a little-endian integer sysctl value.
func sysctlUint(name string) uint64 {
	raw, err := syscall.Sysctl(name)
	if err != nil {
		return 0
	}
	var v uint64
	for i := 0; i < len(raw) && i < 8; i++ {
		v |= uint64(raw[i]) << (8 * i)
	}
	return v
}
