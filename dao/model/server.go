package model

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GPUServer is one monitored machine of the fleet.
//
// RSAKey and RSAKeyPassphrase are stored encrypted (AES-GCM, see
// pkg/keycrypt). The collector borrows a decrypted view for the lifetime of
// one SSH session only.
type GPUServer struct {
	gorm.Model
	ExternalID uuid.UUID `gorm:"type:uuid;uniqueIndex;comment:stable external identifier" json:"externalId"`

	ServerName string  `gorm:"type:varchar(128);not null;comment:display name" json:"serverName"`
	ServerIP   string  `gorm:"type:varchar(64);not null;comment:network address" json:"serverIp"`
	GPUName    *string `gorm:"type:varchar(128);comment:operator override for the probe-reported GPU name" json:"gpuName,omitempty"`
	Username   string  `gorm:"type:varchar(64);not null;comment:SSH user" json:"username"`
	Port       int     `gorm:"not null;default:22;comment:SSH port" json:"port"`

	RSAKey           string  `gorm:"type:text;not null;comment:encrypted private key blob" json:"-"`
	RSAKeyPassphrase *string `gorm:"type:text;comment:encrypted key passphrase" json:"-"`

	Location    *string        `gorm:"type:varchar(128);comment:location tag" json:"location,omitempty"`
	UsageLimit  *int           `gorm:"comment:alert threshold in percent (0-100)" json:"usageLimit,omitempty"`
	AlertEmails datatypes.JSON `gorm:"comment:alert recipient list" json:"alertEmails,omitempty"`
}

func (s *GPUServer) BeforeCreate(_ *gorm.DB) error {
	if s.ExternalID == uuid.Nil {
		s.ExternalID = uuid.New()
	}
	return nil
}
