package handler

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/ben458-1/URL-Server-Monitor/dao"
	"github.com/ben458-1/URL-Server-Monitor/dao/model"
	"github.com/ben458-1/URL-Server-Monitor/internal/resputil"
	"github.com/ben458-1/URL-Server-Monitor/pkg/keycrypt"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewServerMgr)
}

type ServerMgr struct {
	name    string
	servers *dao.ServerStore
	metrics *dao.MetricStore
	alerts  *dao.AlertStore
	cipher  *keycrypt.Cipher
}

type (
	ServerIDReq struct {
		ID uint `uri:"id" binding:"required"`
	}
	GPUHistoryReq struct {
		ID       uint `uri:"id" binding:"required"`
		GPUIndex int  `uri:"gpu"`
	}
	HistoryRangeReq struct {
		Hours int `form:"hours,default=24"`
	}
	AlertHistoryReq struct {
		Limit int `form:"limit,default=100"`
	}
	CreateServerReq struct {
		ServerName       string   `json:"serverName" binding:"required"`
		ServerIP         string   `json:"serverIp" binding:"required"`
		Username         string   `json:"username" binding:"required"`
		Port             int      `json:"port"`
		RSAKey           string   `json:"rsaKey" binding:"required"`
		RSAKeyPassphrase *string  `json:"rsaKeyPassphrase"`
		GPUName          *string  `json:"gpuName"`
		Location         *string  `json:"location"`
		UsageLimit       *int     `json:"usageLimit" binding:"omitempty,min=0,max=100"`
		AlertEmails      []string `json:"alertEmails"`
	}
	UpdateServerReq struct {
		ServerName       string   `json:"serverName" binding:"required"`
		ServerIP         string   `json:"serverIp" binding:"required"`
		Username         string   `json:"username" binding:"required"`
		Port             int      `json:"port"`
		RSAKey           *string  `json:"rsaKey"`
		RSAKeyPassphrase *string  `json:"rsaKeyPassphrase"`
		GPUName          *string  `json:"gpuName"`
		Location         *string  `json:"location"`
		UsageLimit       *int     `json:"usageLimit" binding:"omitempty,min=0,max=100"`
		AlertEmails      []string `json:"alertEmails"`
	}
)

func NewServerMgr(conf *RegisterConfig) Manager {
	return &ServerMgr{
		name:    "servers",
		servers: dao.NewServerStore(conf.DB),
		metrics: dao.NewMetricStore(conf.DB),
		alerts:  dao.NewAlertStore(conf.DB),
		cipher:  conf.Cipher,
	}
}

func (mgr *ServerMgr) GetName() string { return mgr.name }

func (mgr *ServerMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *ServerMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("", mgr.ListServers)
	g.GET(":id", mgr.GetServer)
	g.GET(":id/metrics/latest", mgr.LatestMetrics)
	g.GET(":id/gpus/:gpu/history", mgr.MetricHistory)
	g.GET(":id/alerts", mgr.AlertHistory)
}

func (mgr *ServerMgr) RegisterAdmin(g *gin.RouterGroup) {
	g.POST("", mgr.CreateServer)
	g.PUT(":id", mgr.UpdateServer)
	g.DELETE(":id", mgr.DeleteServer)
}

func (mgr *ServerMgr) ListServers(c *gin.Context) {
	servers, err := mgr.servers.ListAll(c)
	if err != nil {
		resputil.Error(c, fmt.Sprintf("failed to list servers: %v", err), resputil.NotSpecified)
		return
	}
	resputil.Success(c, servers)
}

func (mgr *ServerMgr) GetServer(c *gin.Context) {
	var req ServerIDReq
	if err := c.ShouldBindUri(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	server, err := mgr.servers.GetByID(c, req.ID)
	if err != nil {
		resputil.Error(c, fmt.Sprintf("failed to get server: %v", err), resputil.NotSpecified)
		return
	}
	resputil.Success(c, server)
}

// CreateServer registers a machine. Key material is encrypted before it
// touches the database.
func (mgr *ServerMgr) CreateServer(c *gin.Context) {
	var req CreateServerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	encKey, err := mgr.cipher.Encrypt([]byte(req.RSAKey))
	if err != nil {
		resputil.Error(c, fmt.Sprintf("failed to encrypt key: %v", err), resputil.NotSpecified)
		return
	}
	server := &model.GPUServer{
		ServerName:  req.ServerName,
		ServerIP:    req.ServerIP,
		Username:    req.Username,
		Port:        req.Port,
		RSAKey:      encKey,
		GPUName:     req.GPUName,
		Location:    req.Location,
		UsageLimit:  req.UsageLimit,
		AlertEmails: encodeEmails(req.AlertEmails),
	}
	if server.Port == 0 {
		server.Port = 22
	}
	if req.RSAKeyPassphrase != nil {
		encPass, encErr := mgr.cipher.Encrypt([]byte(*req.RSAKeyPassphrase))
		if encErr != nil {
			resputil.Error(c, fmt.Sprintf("failed to encrypt passphrase: %v", encErr), resputil.NotSpecified)
			return
		}
		server.RSAKeyPassphrase = &encPass
	}

	if err := mgr.servers.Create(c, server); err != nil {
		resputil.Error(c, fmt.Sprintf("failed to create server: %v", err), resputil.NotSpecified)
		return
	}
	resputil.Success(c, server)
}

// UpdateServer replaces the mutable fields. Stored key material survives
// unless the request carries a replacement.
func (mgr *ServerMgr) UpdateServer(c *gin.Context) {
	var uri ServerIDReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req UpdateServerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	server, err := mgr.servers.GetByID(c, uri.ID)
	if err != nil {
		resputil.Error(c, fmt.Sprintf("failed to get server: %v", err), resputil.NotSpecified)
		return
	}

	server.ServerName = req.ServerName
	server.ServerIP = req.ServerIP
	server.Username = req.Username
	if req.Port != 0 {
		server.Port = req.Port
	}
	server.GPUName = req.GPUName
	server.Location = req.Location
	server.UsageLimit = req.UsageLimit
	server.AlertEmails = encodeEmails(req.AlertEmails)
	if req.RSAKey != nil {
		encKey, encErr := mgr.cipher.Encrypt([]byte(*req.RSAKey))
		if encErr != nil {
			resputil.Error(c, fmt.Sprintf("failed to encrypt key: %v", encErr), resputil.NotSpecified)
			return
		}
		server.RSAKey = encKey
	}
	if req.RSAKeyPassphrase != nil {
		encPass, encErr := mgr.cipher.Encrypt([]byte(*req.RSAKeyPassphrase))
		if encErr != nil {
			resputil.Error(c, fmt.Sprintf("failed to encrypt passphrase: %v", encErr), resputil.NotSpecified)
			return
		}
		server.RSAKeyPassphrase = &encPass
	}

	if err := mgr.servers.Update(c, server); err != nil {
		resputil.Error(c, fmt.Sprintf("failed to update server: %v", err), resputil.NotSpecified)
		return
	}
	resputil.Success(c, server)
}

func (mgr *ServerMgr) DeleteServer(c *gin.Context) {
	var req ServerIDReq
	if err := c.ShouldBindUri(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if err := mgr.servers.Delete(c, req.ID); err != nil {
		resputil.Error(c, fmt.Sprintf("failed to delete server: %v", err), resputil.NotSpecified)
		return
	}
	resputil.Success(c, "deleted")
}

// LatestMetrics returns the newest sample per GPU, process list included.
func (mgr *ServerMgr) LatestMetrics(c *gin.Context) {
	var req ServerIDReq
	if err := c.ShouldBindUri(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	metrics, err := mgr.metrics.Latest(c, req.ID)
	if err != nil {
		resputil.Error(c, fmt.Sprintf("failed to load metrics: %v", err), resputil.NotSpecified)
		return
	}
	resputil.Success(c, metrics)
}

func (mgr *ServerMgr) MetricHistory(c *gin.Context) {
	var uri GPUHistoryReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var rng HistoryRangeReq
	if err := c.ShouldBindQuery(&rng); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	since := time.Now().Add(-time.Duration(rng.Hours) * time.Hour)
	metrics, err := mgr.metrics.History(c, uri.ID, uri.GPUIndex, since)
	if err != nil {
		resputil.Error(c, fmt.Sprintf("failed to load history: %v", err), resputil.NotSpecified)
		return
	}
	resputil.Success(c, metrics)
}

func (mgr *ServerMgr) AlertHistory(c *gin.Context) {
	var uri ServerIDReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req AlertHistoryReq
	if err := c.ShouldBindQuery(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	alerts, err := mgr.alerts.History(c, &uri.ID, req.Limit)
	if err != nil {
		resputil.Error(c, fmt.Sprintf("failed to load alerts: %v", err), resputil.NotSpecified)
		return
	}
	resputil.Success(c, alerts)
}

func encodeEmails(emails []string) datatypes.JSON {
	if len(emails) == 0 {
		return nil
	}
	raw, err := json.Marshal(emails)
	if err != nil {
		return nil
	}
	return raw
}
