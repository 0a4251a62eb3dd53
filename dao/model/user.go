package model

import (
	"gorm.io/gorm"
)

// User is an operator account for the web console.
type User struct {
	gorm.Model
	Name     string  `gorm:"uniqueIndex;type:varchar(32);not null" json:"name"`
	Email    *string `gorm:"type:varchar(128)" json:"email,omitempty"`
	Password string  `gorm:"type:varchar(128);not null;comment:bcrypt hash" json:"-"`
	Role     Role    `gorm:"not null;default:1" json:"role"`
}
