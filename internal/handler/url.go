package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/ben458-1/URL-Server-Monitor/dao"
	"github.com/ben458-1/URL-Server-Monitor/dao/model"
	"github.com/ben458-1/URL-Server-Monitor/internal/resputil"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewURLMgr)
}

type URLMgr struct {
	name   string
	urls   *dao.URLStore
	health *dao.HealthStore
}

type (
	URLIDReq struct {
		ID uint `uri:"id" binding:"required"`
	}
	CreateURLReq struct {
		ProjectName string   `json:"projectName" binding:"required"`
		URL         string   `json:"url" binding:"required,url"`
		Environment string   `json:"environment"`
		Description *string  `json:"description"`
		AlertEmails []string `json:"alertEmails"`
	}
	UpdateURLReq struct {
		ProjectName        string   `json:"projectName" binding:"required"`
		URL                string   `json:"url" binding:"required,url"`
		Environment        string   `json:"environment"`
		Description        *string  `json:"description"`
		HealthCheckEnabled *bool    `json:"healthCheckEnabled"`
		AlertEmails        []string `json:"alertEmails"`
	}
)

func NewURLMgr(conf *RegisterConfig) Manager {
	return &URLMgr{
		name:   "urls",
		urls:   dao.NewURLStore(conf.DB),
		health: dao.NewHealthStore(conf.DB),
	}
}

func (mgr *URLMgr) GetName() string { return mgr.name }

func (mgr *URLMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *URLMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("", mgr.ListURLs)
	g.GET("status", mgr.LatestStatus)
}

func (mgr *URLMgr) RegisterAdmin(g *gin.RouterGroup) {
	g.POST("", mgr.CreateURL)
	g.PUT(":id", mgr.UpdateURL)
	g.DELETE(":id", mgr.DeleteURL)
	g.PUT(":id/toggle", mgr.ToggleHealthCheck)
}

func (mgr *URLMgr) ListURLs(c *gin.Context) {
	urls, err := mgr.urls.ListAll(c)
	if err != nil {
		resputil.Error(c, fmt.Sprintf("failed to list urls: %v", err), resputil.NotSpecified)
		return
	}
	resputil.Success(c, urls)
}

// LatestStatus returns the most recent check result per URL.
func (mgr *URLMgr) LatestStatus(c *gin.Context) {
	statuses, err := mgr.health.Latest(c)
	if err != nil {
		resputil.Error(c, fmt.Sprintf("failed to load statuses: %v", err), resputil.NotSpecified)
		return
	}
	resputil.Success(c, statuses)
}

func (mgr *URLMgr) CreateURL(c *gin.Context) {
	var req CreateURLReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	url := &model.URL{
		ProjectName:        req.ProjectName,
		URL:                req.URL,
		Environment:        req.Environment,
		Description:        req.Description,
		HealthCheckEnabled: true,
		AlertEmails:        encodeEmails(req.AlertEmails),
	}
	if err := mgr.urls.Create(c, url); err != nil {
		resputil.Error(c, fmt.Sprintf("failed to create url: %v", err), resputil.NotSpecified)
		return
	}
	resputil.Success(c, url)
}

func (mgr *URLMgr) UpdateURL(c *gin.Context) {
	var uri URLIDReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req UpdateURLReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	url, err := mgr.urls.GetByID(c, uri.ID)
	if err != nil {
		resputil.Error(c, fmt.Sprintf("failed to get url: %v", err), resputil.NotSpecified)
		return
	}
	url.ProjectName = req.ProjectName
	url.URL = req.URL
	url.Environment = req.Environment
	url.Description = req.Description
	url.AlertEmails = encodeEmails(req.AlertEmails)
	if req.HealthCheckEnabled != nil {
		url.HealthCheckEnabled = *req.HealthCheckEnabled
	}

	if err := mgr.urls.Update(c, url); err != nil {
		resputil.Error(c, fmt.Sprintf("failed to update url: %v", err), resputil.NotSpecified)
		return
	}
	resputil.Success(c, url)
}

func (mgr *URLMgr) DeleteURL(c *gin.Context) {
	var uri URLIDReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if err := mgr.urls.Delete(c, uri.ID); err != nil {
		resputil.Error(c, fmt.Sprintf("failed to delete url: %v", err), resputil.NotSpecified)
		return
	}
	resputil.Success(c, "deleted")
}

// ToggleHealthCheck flips monitoring for one URL without touching the rest
// of the record.
func (mgr *URLMgr) ToggleHealthCheck(c *gin.Context) {
	var uri URLIDReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	url, err := mgr.urls.GetByID(c, uri.ID)
	if err != nil {
		resputil.Error(c, fmt.Sprintf("failed to get url: %v", err), resputil.NotSpecified)
		return
	}
	url.HealthCheckEnabled = !url.HealthCheckEnabled
	if err := mgr.urls.Update(c, url); err != nil {
		resputil.Error(c, fmt.Sprintf("failed to update url: %v", err), resputil.NotSpecified)
		return
	}
	resputil.Success(c, url)
}
