// Package cpuspec selects worker counts for the row-parallel frame blender.
package cpuspec

import (
	"runtime"

	"github.com/klauspost/cpuid/v2"
)

// CPUSpec contains information about CPU specifications.
type CPUSpec struct {
	BrandName     string
	PhysicalCores int
	LogicalCores  int
}

// GetCPUSpec returns the detected CPU specification.
func GetCPUSpec() CPUSpec {
	return CPUSpec{
		BrandName:     cpuid.CPU.BrandName,
		PhysicalCores: cpuid.CPU.PhysicalCores,
		LogicalCores:  cpuid.CPU.LogicalCores,
	}
}

// GetOptimalBlendWorkers returns the recommended worker count for frame
// blending: physical cores where detectable, capped by the scheduler's view
// of available CPUs (important inside VMs and cgroups).
func (c CPUSpec) GetOptimalBlendWorkers() int {
	available := runtime.NumCPU()
	if c.PhysicalCores > 0 && c.PhysicalCores < available {
		return c.PhysicalCores
	}
	if available < 1 {
		return 1
	}
	return available
}
