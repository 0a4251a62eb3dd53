package resputil

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope every JSON endpoint returns.
type Response[T any] struct {
	Code ErrorCode `json:"code"`
	Data T         `json:"data"`
	Msg  string    `json:"msg"`
}

func Success[T any](c *gin.Context, data T) {
	c.JSON(http.StatusOK, Response[T]{Code: OK, Data: data, Msg: "success"})
}

func Error(c *gin.Context, msg string, code ErrorCode) {
	c.JSON(http.StatusInternalServerError, Response[any]{Code: code, Msg: msg})
}

func BadRequestError(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response[any]{Code: InvalidRequest, Msg: msg})
}

func HTTPError(c *gin.Context, status int, msg string, code ErrorCode) {
	c.AbortWithStatusJSON(status, Response[any]{Code: code, Msg: msg})
}
