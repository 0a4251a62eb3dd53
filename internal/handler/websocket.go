package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"k8s.io/klog/v2"

	"github.com/ben458-1/URL-Server-Monitor/pkg/broadcast"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewWebSocketMgr)
}

type WebSocketMgr struct {
	name     string
	hub      *broadcast.Hub
	upgrader websocket.Upgrader
}

func NewWebSocketMgr(conf *RegisterConfig) Manager {
	return &WebSocketMgr{
		name: "ws",
		hub:  conf.Hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browsers connect from the frontend origin.
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
	}
}

func (mgr *WebSocketMgr) GetName() string { return mgr.name }

func (mgr *WebSocketMgr) RegisterPublic(g *gin.RouterGroup) {
	g.GET("", mgr.Serve)
}

func (mgr *WebSocketMgr) RegisterProtected(_ *gin.RouterGroup) {}

func (mgr *WebSocketMgr) RegisterAdmin(_ *gin.RouterGroup) {}

// Serve upgrades the connection and parks it on the hub. The read loop only
// drains control frames and detects the peer going away; all data flows
// server to client.
func (mgr *WebSocketMgr) Serve(c *gin.Context) {
	conn, err := mgr.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		klog.Errorf("websocket upgrade failed: %v", err)
		return
	}

	mgr.hub.Subscribe(conn)
	klog.V(2).Infof("websocket client connected, %d active", mgr.hub.Count())

	go func() {
		defer func() {
			mgr.hub.Unsubscribe(conn)
			conn.Close()
			klog.V(2).Infof("websocket client disconnected, %d active", mgr.hub.Count())
		}()
		for {
			if _, _, readErr := conn.ReadMessage(); readErr != nil {
				return
			}
		}
	}()
}
