package probe

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFullReport(t *testing.T) {
	raw := `{
		"host": {"memory_total_mib": 64000, "memory_used_mib": 30000, "memory_free_mib": 34000,
			"disk_total_mib": 500000, "disk_used_mib": 100000, "disk_free_mib": 400000, "disk_usage_pct": 20},
		"gpus": [{"gpu_index": 0, "gpu_name": "NVIDIA A100", "gpu_memory_total_mib": 40960,
			"gpu_memory_used_mib": 1024, "gpu_memory_free_mib": 39936, "gpu_utilization_pct": 5,
			"per_gpu_aggregates": {"process_ram_pss_mib": 100.5, "process_ram_rss_mib": 200.25},
			"processes": [{"pid": 7, "process_name": "python", "cmd": "python infer.py",
				"used_mem_mib": 1024, "process_ram_pss_mib": 100.5, "process_ram_rss_mib": 200.25}]}],
		"error": null,
		"timestamp": 1722500000.5
	}`

	report, err := Decode(raw)
	require.NoError(t, err)
	assert.Nil(t, report.Error)
	assert.Equal(t, 64000, report.Host.MemoryTotalMiB)
	require.Len(t, report.GPUs, 1)
	assert.Equal(t, "NVIDIA A100", report.GPUs[0].Name)
	assert.InDelta(t, 100.5, report.GPUs[0].Aggregates.ProcessRAMPssMiB, 0.001)
	require.Len(t, report.GPUs[0].Processes, 1)
	assert.Equal(t, 7, report.GPUs[0].Processes[0].PID)
}

func TestDecodeReportWithTopLevelError(t *testing.T) {
	report, err := Decode(`{"host": {}, "gpus": [], "error": "NVML initialization failed", "timestamp": 0}`)
	require.NoError(t, err)
	require.NotNil(t, report.Error)
	assert.Contains(t, *report.Error, "NVML")
}

func TestDecodeMalformedOutputCarriesExcerpt(t *testing.T) {
	_, err := Decode("Traceback (most recent call last):\n  File \"<stdin>\"")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Traceback")
}

func TestDecodeExcerptIsBounded(t *testing.T) {
	_, err := Decode(strings.Repeat("x", 5000))
	require.Error(t, err)
	assert.Less(t, len(err.Error()), 1000)
}
