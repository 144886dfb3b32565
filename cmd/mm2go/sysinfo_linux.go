//go:build linux

package main

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// performanceCores returns the number of high-frequency physical cores on
// a hybrid CPU, or 0 when the cores look homogeneous or /proc/cpuinfo
// cannot be read.
func performanceCores() int {
	f, err := os.Open("/proc/cpuinfo")
	if err != nil {
		return 0
	}
	defer f.Close()

	// max MHz per physical core id
	freq := make(map[int]float64)
	coreID := -1
	var mhz float64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			// A blank line ends a processor block.
			if coreID >= 0 && mhz > freq[coreID] {
				freq[coreID] = mhz
			}
			coreID, mhz = -1, 0
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "core id":
			if id, err := strconv.Atoi(value); err == nil {
				coreID = id
			}
		case "cpu MHz":
			if v, err := strconv.ParseFloat(value, 64); err == nil {
				mhz = v
			}
		}
	}
	if coreID >= 0 && mhz > freq[coreID] {
		freq[coreID] = mhz
	}
	return countFast(freq)
}

// countFast counts cores within 10% of the mean frequency; 0 unless that
// is a strict subset of at least three cores.
func countFast(freq map[int]float64) int {
	if len(freq) <= 2 {
		return 0
	}
	var sum float64
	for _, f := range freq {
		sum += f
	}
	mean := sum / float64(len(freq))

	n := 0
	for _, f := range freq {
		if f >= mean*0.9 {
			n++
		}
	}
	if n == len(freq) {
		return 0
	}
	return n
}

// systemMemory returns total and available memory in bytes from
// /proc/meminfo, or zeros when it cannot be read.
func systemMemory() (total, available uint64) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, 0
	}
	defer f.Close()

	fields := make(map[string]uint64)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 2 {
			continue
		}
		kb, err := strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			continue
		}
		fields[strings.TrimSuffix(parts[0], ":")] = kb * 1024
	}

	total = fields["MemTotal"]
	available, ok := fields["MemAvailable"]
	if !ok {
		// Kernels before 3.14 have no MemAvailable.
		available = fields["MemFree"] + fields["Buffers"] + fields["Cached"]
	}
	return total, available
}
