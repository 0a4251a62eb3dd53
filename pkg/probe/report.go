// Package probe defines the remote probe program and its output contract.
package probe

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Report is one probe invocation's JSON document. A non-nil Error voids the
// GPUs array.
type Report struct {
	Host      HostStats `json:"host"`
	GPUs      []GPU     `json:"gpus"`
	Error     *string   `json:"error"`
	Timestamp float64   `json:"timestamp"`
}

// HostStats are host-wide figures, read once per invocation and shared by
// every GPU of the host.
type HostStats struct {
	MemoryTotalMiB int `json:"memory_total_mib"`
	MemoryUsedMiB  int `json:"memory_used_mib"`
	MemoryFreeMiB  int `json:"memory_free_mib"`
	DiskTotalMiB   int `json:"disk_total_mib"`
	DiskUsedMiB    int `json:"disk_used_mib"`
	DiskFreeMiB    int `json:"disk_free_mib"`
	DiskUsagePct   int `json:"disk_usage_pct"`
}

type GPU struct {
	Index          int        `json:"gpu_index"`
	Name           string     `json:"gpu_name"`
	MemoryTotalMiB int        `json:"gpu_memory_total_mib"`
	MemoryUsedMiB  int        `json:"gpu_memory_used_mib"`
	MemoryFreeMiB  int        `json:"gpu_memory_free_mib"`
	UtilizationPct int        `json:"gpu_utilization_pct"`
	Aggregates     Aggregates `json:"per_gpu_aggregates"`
	Processes      []Process  `json:"processes"`
}

// Aggregates are per-GPU sums over the process list, in both accounting
// methods the probe could read.
type Aggregates struct {
	ProcessRAMPssMiB float64 `json:"process_ram_pss_mib"`
	ProcessRAMRssMiB float64 `json:"process_ram_rss_mib"`
}

type Process struct {
	PID              int     `json:"pid"`
	ProcessName      string  `json:"process_name"`
	Cmd              string  `json:"cmd"`
	UsedMemMiB       int     `json:"used_mem_mib"`
	ProcessRAMPssMiB float64 `json:"process_ram_pss_mib"`
	ProcessRAMRssMiB float64 `json:"process_ram_rss_mib"`
}

const rawExcerptLen = 500

// Decode parses raw probe output. Malformed output is a protocol failure;
// the error carries an excerpt of the raw text for diagnosis.
func Decode(raw string) (*Report, error) {
	var report Report
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		excerpt := strings.TrimSpace(raw)
		if len(excerpt) > rawExcerptLen {
			excerpt = excerpt[:rawExcerptLen]
		}
		return nil, fmt.Errorf("parsing probe output: %w (raw: %q)", err, excerpt)
	}
	return &report, nil
}
