package collector

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ben458-1/URL-Server-Monitor/dao/model"
	"github.com/ben458-1/URL-Server-Monitor/pkg/probe"
)

func testReport() *probe.Report {
	return &probe.Report{
		Host: probe.HostStats{
			MemoryTotalMiB: 64000,
			MemoryUsedMiB:  32000,
			MemoryFreeMiB:  32000,
			DiskTotalMiB:   500000,
			DiskUsedMiB:    250000,
			DiskFreeMiB:    250000,
			DiskUsagePct:   50,
		},
		GPUs: []probe.GPU{
			{
				Index:          0,
				Name:           "NVIDIA A100-SXM4-40GB",
				MemoryTotalMiB: 40960,
				MemoryUsedMiB:  10240,
				MemoryFreeMiB:  30720,
				UtilizationPct: 75,
				Aggregates:     probe.Aggregates{ProcessRAMPssMiB: 2048, ProcessRAMRssMiB: 4096},
				Processes: []probe.Process{
					{PID: 1234, ProcessName: "python", Cmd: "python train.py", UsedMemMiB: 10240,
						ProcessRAMPssMiB: 2048, ProcessRAMRssMiB: 4096},
				},
			},
			{
				Index:          1,
				Name:           "NVIDIA A100-SXM4-40GB",
				MemoryTotalMiB: 40960,
				MemoryFreeMiB:  40960,
			},
		},
	}
}

func TestNormalizeCopiesHostFiguresToEveryGPU(t *testing.T) {
	server := &model.GPUServer{ServerIP: "10.0.0.5"}
	server.ID = 7

	samples, err := Normalize(server, testReport())
	require.NoError(t, err)
	require.Len(t, samples, 2)

	for _, s := range samples {
		assert.Equal(t, uint(7), s.ServerID)
		assert.Equal(t, "10.0.0.5", s.Host)
		assert.Equal(t, 64000, s.HostMemoryTotalMiB)
		assert.Equal(t, 32000, s.HostMemoryUsedMiB)
		assert.Equal(t, 50, s.HostDiskUsagePct)
	}
	assert.Equal(t, 0, samples[0].GPUIndex)
	assert.Equal(t, 1, samples[1].GPUIndex)
	assert.Equal(t, 10240, samples[0].GPUMemoryUsedMiB)
	assert.Empty(t, samples[1].Processes)
}

func TestNormalizePrefersPssOverRss(t *testing.T) {
	server := &model.GPUServer{ServerIP: "10.0.0.5"}

	samples, err := Normalize(server, testReport())
	require.NoError(t, err)

	assert.Equal(t, 2048, samples[0].ProcessRAMMiB)
	require.Len(t, samples[0].Processes, 1)
	assert.Equal(t, 2048, samples[0].Processes[0].ProcessRAMMiB)
}

func TestNormalizeFallsBackToRssWhenPssUnreadable(t *testing.T) {
	report := testReport()
	report.GPUs[0].Aggregates = probe.Aggregates{ProcessRAMPssMiB: 0, ProcessRAMRssMiB: 50}
	report.GPUs[0].Processes[0].ProcessRAMPssMiB = 0
	report.GPUs[0].Processes[0].ProcessRAMRssMiB = 50

	samples, err := Normalize(&model.GPUServer{ServerIP: "10.0.0.5"}, report)
	require.NoError(t, err)

	assert.Equal(t, 50, samples[0].ProcessRAMMiB)
	assert.Equal(t, 50, samples[0].Processes[0].ProcessRAMMiB)
}

func TestNormalizeAppliesGPUNameOverride(t *testing.T) {
	server := &model.GPUServer{ServerIP: "10.0.0.5", GPUName: lo.ToPtr("A100 Rack 3")}

	samples, err := Normalize(server, testReport())
	require.NoError(t, err)

	for _, s := range samples {
		assert.Equal(t, "A100 Rack 3", s.GPUName)
	}

	// An empty override means no override.
	server.GPUName = lo.ToPtr("")
	samples, err = Normalize(server, testReport())
	require.NoError(t, err)
	assert.Equal(t, "NVIDIA A100-SXM4-40GB", samples[0].GPUName)
}

func TestNormalizeRejectsReportLevelError(t *testing.T) {
	report := testReport()
	report.Error = lo.ToPtr("NVML initialization failed")

	samples, err := Normalize(&model.GPUServer{ServerIP: "10.0.0.5"}, report)
	assert.Nil(t, samples)

	var probeErr *ProbeReportError
	require.ErrorAs(t, err, &probeErr)
	assert.Equal(t, "10.0.0.5", probeErr.Host)
	assert.Contains(t, probeErr.Message, "NVML")
}

func TestNormalizeIsDeterministic(t *testing.T) {
	server := &model.GPUServer{ServerIP: "10.0.0.5"}

	first, err := Normalize(server, testReport())
	require.NoError(t, err)
	second, err := Normalize(server, testReport())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
