package model

import (
	"time"
)

// GPUMetric is one GPU's readings at one collection instant. Rows are
// append-only; corrections are new rows, never updates.
//
// Host-wide RAM and disk figures are duplicated on every GPU row of the same
// probe invocation (they are host properties, not per-GPU properties).
type GPUMetric struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`

	ServerID uint   `gorm:"index:idx_metric_server_gpu;not null" json:"serverId"`
	Host     string `gorm:"type:varchar(64);not null;comment:network address of the host" json:"host"`
	GPUIndex int    `gorm:"index:idx_metric_server_gpu;not null" json:"gpuIndex"`
	GPUName  string `gorm:"type:varchar(128)" json:"gpuName"`

	GPUMemoryTotalMiB int `json:"gpuMemoryTotalMib"`
	GPUMemoryUsedMiB  int `json:"gpuMemoryUsedMib"`
	GPUMemoryFreeMiB  int `json:"gpuMemoryFreeMib"`
	GPUUtilizationPct int `json:"gpuUtilizationPct"`

	HostMemoryTotalMiB int `json:"hostMemoryTotalMib"`
	HostMemoryUsedMiB  int `json:"hostMemoryUsedMib"`
	HostMemoryFreeMiB  int `json:"hostMemoryFreeMib"`
	HostDiskTotalMiB   int `json:"hostDiskTotalMib"`
	HostDiskUsedMiB    int `json:"hostDiskUsedMib"`
	HostDiskFreeMiB    int `json:"hostDiskFreeMib"`
	HostDiskUsagePct   int `json:"hostDiskUsagePct"`

	// Sum of process host RAM on this GPU, PSS preferred over RSS.
	ProcessRAMMiB int `json:"processRamMib"`

	Processes []PidMetric `gorm:"constraint:OnDelete:CASCADE" json:"processes,omitempty"`
}

// PidMetric is one process's footprint on one GPU at one instant. Exists only
// as a child of a GPUMetric row and is pruned with it.
type PidMetric struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`

	GPUMetricID uint   `gorm:"index;not null" json:"gpuMetricId"`
	PID         int    `gorm:"not null" json:"pid"`
	ProcessName string `gorm:"type:varchar(256)" json:"processName"`
	Cmd         string `gorm:"type:text" json:"cmd"`

	// GPU memory held by the process.
	UsedMemMiB int `json:"usedMemMib"`
	// Host RAM attributed to the process, PSS preferred over RSS.
	ProcessRAMMiB int `json:"processRamMib"`
}
