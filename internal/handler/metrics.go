package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewMetricsMgr)
}

type MetricsMgr struct {
	name string
}

func NewMetricsMgr(_ *RegisterConfig) Manager {
	return &MetricsMgr{name: "metrics"}
}

func (mgr *MetricsMgr) GetName() string { return mgr.name }

// The collectors register their series on the default registry, so the
// default handler exposes everything.
func (mgr *MetricsMgr) RegisterPublic(g *gin.RouterGroup) {
	g.GET("", gin.WrapH(promhttp.Handler()))
}

func (mgr *MetricsMgr) RegisterProtected(_ *gin.RouterGroup) {}

func (mgr *MetricsMgr) RegisterAdmin(_ *gin.RouterGroup) {}
