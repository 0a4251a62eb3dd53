package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// URL is one HTTP endpoint watched by the health checker.
type URL struct {
	gorm.Model

	ProjectName string  `gorm:"type:varchar(128);comment:owning project" json:"projectName"`
	URL         string  `gorm:"type:varchar(512);not null" json:"url"`
	Environment string  `gorm:"type:varchar(32);comment:dev, staging, prod" json:"environment"`
	Description *string `gorm:"type:varchar(256)" json:"description,omitempty"`

	HealthCheckEnabled bool           `gorm:"not null;default:true" json:"healthCheckEnabled"`
	AlertEmails        datatypes.JSON `json:"alertEmails,omitempty"`
}

// HealthStatus is one check result for one URL. Append-only.
type HealthStatus struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CheckedAt time.Time `gorm:"index;autoCreateTime" json:"checkedAt"`

	URLID          uint        `gorm:"index;not null" json:"urlId"`
	Status         HealthState `gorm:"type:varchar(16);not null" json:"status"`
	ResponseTimeMS *int        `json:"responseTime,omitempty"`
	StatusCode     *int        `json:"statusCode,omitempty"`
	ErrorMessage   *string     `gorm:"type:varchar(512)" json:"errorMessage,omitempty"`
}
