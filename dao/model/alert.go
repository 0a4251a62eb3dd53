package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Alert records one dispatched GPU memory notification.
//
// The most recent row per (ServerID, GPUIndex) gates future alerts via the
// cooldown window. Rows are written only after a confirmed send, so a failed
// dispatch never starts the cooldown clock.
type Alert struct {
	gorm.Model

	ServerID uint `gorm:"index:idx_alert_server_gpu;not null" json:"serverId"`
	GPUIndex int  `gorm:"index:idx_alert_server_gpu;not null" json:"gpuIndex"`

	UsagePct       float64        `gorm:"not null;comment:usage percent at trigger time" json:"usagePct"`
	MemoryUsedMiB  int            `json:"memoryUsedMib"`
	MemoryTotalMiB int            `json:"memoryTotalMib"`
	ThresholdPct   int            `gorm:"not null;comment:threshold that was exceeded" json:"thresholdPct"`
	Recipients     datatypes.JSON `gorm:"comment:recipient list at send time" json:"recipients"`
	SentAt         time.Time      `gorm:"index;not null" json:"sentAt"`
}
