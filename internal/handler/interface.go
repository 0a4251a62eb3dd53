package handler

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ben458-1/URL-Server-Monitor/pkg/broadcast"
	"github.com/ben458-1/URL-Server-Monitor/pkg/keycrypt"
)

type Manager interface {
	GetName() string
	RegisterPublic(group *gin.RouterGroup)
	RegisterProtected(group *gin.RouterGroup)
	RegisterAdmin(group *gin.RouterGroup)
}

// RegisterConfig carries the shared dependencies handed to every manager.
type RegisterConfig struct {
	DB     *gorm.DB
	Hub    *broadcast.Hub
	Cipher *keycrypt.Cipher
}

type RegisterFunc func(conf *RegisterConfig) Manager

var Registers []RegisterFunc
