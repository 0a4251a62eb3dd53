// Package alert decides when a GPU memory reading warrants an email
// notification, dispatches it and records the outcome.
package alert

import (
	"context"

	"github.com/ben458-1/URL-Server-Monitor/dao/model"
)

// Store persists and looks up dispatched alerts. LastAlert returns nil when
// no alert was ever sent for the pair.
type Store interface {
	LastAlert(ctx context.Context, serverID uint, gpuIndex int) (*model.Alert, error)
	Record(ctx context.Context, alert *model.Alert) error
}

// Mailer is the outbound email transport.
type Mailer interface {
	SendPlainText(recipients []string, subject, body string) error
}

// GPUReading is one freshly normalized GPU sample plus the server's alert
// settings.
type GPUReading struct {
	ServerID   uint
	ServerName string
	ServerIP   string

	GPUIndex int
	GPUName  string

	MemoryUsedMiB  int
	MemoryTotalMiB int

	ThresholdPct int
	Recipients   []string
}
