package collector

import (
	"fmt"

	"github.com/ben458-1/URL-Server-Monitor/dao/model"
	"github.com/ben458-1/URL-Server-Monitor/pkg/probe"
)

// Normalize converts one probe report into canonical sample rows for the
// given server. Host-wide figures are copied onto every GPU row; the
// operator's GPU name override, when set, replaces the probe-reported name.
//
// A report carrying a top-level error yields zero samples and a
// ProbeReportError; the fleet cycle goes on without this server.
func Normalize(server *model.GPUServer, report *probe.Report) ([]model.GPUMetric, error) {
	if report.Error != nil {
		return nil, &ProbeReportError{Host: server.ServerIP, Message: *report.Error}
	}

	samples := make([]model.GPUMetric, 0, len(report.GPUs))
	for i := range report.GPUs {
		gpu := &report.GPUs[i]

		name := gpu.Name
		if server.GPUName != nil && *server.GPUName != "" {
			name = *server.GPUName
		}

		sample := model.GPUMetric{
			ServerID: server.ID,
			Host:     server.ServerIP,
			GPUIndex: gpu.Index,
			GPUName:  name,

			GPUMemoryTotalMiB: gpu.MemoryTotalMiB,
			GPUMemoryUsedMiB:  gpu.MemoryUsedMiB,
			GPUMemoryFreeMiB:  gpu.MemoryFreeMiB,
			GPUUtilizationPct: gpu.UtilizationPct,

			HostMemoryTotalMiB: report.Host.MemoryTotalMiB,
			HostMemoryUsedMiB:  report.Host.MemoryUsedMiB,
			HostMemoryFreeMiB:  report.Host.MemoryFreeMiB,
			HostDiskTotalMiB:   report.Host.DiskTotalMiB,
			HostDiskUsedMiB:    report.Host.DiskUsedMiB,
			HostDiskFreeMiB:    report.Host.DiskFreeMiB,
			HostDiskUsagePct:   report.Host.DiskUsagePct,

			ProcessRAMMiB: preferPss(gpu.Aggregates.ProcessRAMPssMiB, gpu.Aggregates.ProcessRAMRssMiB),
		}

		for _, proc := range gpu.Processes {
			sample.Processes = append(sample.Processes, model.PidMetric{
				PID:           proc.PID,
				ProcessName:   proc.ProcessName,
				Cmd:           proc.Cmd,
				UsedMemMiB:    proc.UsedMemMiB,
				ProcessRAMMiB: preferPss(proc.ProcessRAMPssMiB, proc.ProcessRAMRssMiB),
			})
		}

		samples = append(samples, sample)
	}
	return samples, nil
}

// preferPss picks proportional-share memory when the probe could read it and
// falls back to resident-set size. A process with neither reports zero.
func preferPss(pss, rss float64) int {
	if pss > 0 {
		return int(pss)
	}
	return int(rss)
}

// ProbeReportError is a probe that ran but reported its own failure, e.g.
// NVML init failure on the target.
type ProbeReportError struct {
	Host    string
	Message string
}

func (e *ProbeReportError) Error() string {
	return fmt.Sprintf("probe on %s reported: %s", e.Host, e.Message)
}
