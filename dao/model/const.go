// Constants matching database enum-like columns.
// Gin binding treats zero values as missing when the `required` tag is set,
// so first constants start at iota + 1.
package model

// User role in the platform
type Role uint8

const (
	RoleUser Role = iota + 1
	RoleAdmin
)

// Health check result state
type HealthState string

const (
	HealthOnline  HealthState = "online"
	HealthOffline HealthState = "offline"
)
