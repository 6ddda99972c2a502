package util

import (
	"fmt"
	"runtime"
)

type MemoryStats struct {
	HeapAllocMB uint64
	HeapSysMB   uint64
	NumGC       uint32
	Goroutines  int
}

func ReadMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{
		HeapAllocMB: m.HeapAlloc >> 20,
		HeapSysMB:   m.HeapSys >> 20,
		NumGC:       m.NumGC,
		Goroutines:  runtime.NumGoroutine(),
	}
}

func (s MemoryStats) String() string {
	return fmt.Sprintf("%d MB heap of %d MB reserved, %d GC cycles, %d goroutines",
		s.HeapAllocMB, s.HeapSysMB, s.NumGC, s.Goroutines)
}
