package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func bindJSON(t *testing.T, body string, req any) error {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c.ShouldBindJSON(req)
}

func TestCreateServerUsageLimitRange(t *testing.T) {
	base := `{"serverName":"node-a","serverIp":"10.0.0.1","username":"monitor","rsaKey":"key","usageLimit":%d}`

	var req CreateServerReq
	assert.NoError(t, bindJSON(t, fmt.Sprintf(base, 0), &req))
	assert.NoError(t, bindJSON(t, fmt.Sprintf(base, 100), &req))
	assert.Error(t, bindJSON(t, fmt.Sprintf(base, 101), &req))
	assert.Error(t, bindJSON(t, fmt.Sprintf(base, -1), &req))

	// Omitting the threshold disables alerting, not validation.
	assert.NoError(t, bindJSON(t, `{"serverName":"node-a","serverIp":"10.0.0.1","username":"monitor","rsaKey":"key"}`, &req))
}

func TestUpdateServerUsageLimitRange(t *testing.T) {
	base := `{"serverName":"node-a","serverIp":"10.0.0.1","username":"monitor","usageLimit":%d}`

	var req UpdateServerReq
	assert.NoError(t, bindJSON(t, fmt.Sprintf(base, 80), &req))
	assert.Error(t, bindJSON(t, fmt.Sprintf(base, 250), &req))
}
