package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/ben458-1/URL-Server-Monitor/dao"
	"github.com/ben458-1/URL-Server-Monitor/dao/model"
	"github.com/ben458-1/URL-Server-Monitor/internal/middleware"
	"github.com/ben458-1/URL-Server-Monitor/internal/resputil"
	"github.com/ben458-1/URL-Server-Monitor/internal/util"
	"github.com/ben458-1/URL-Server-Monitor/pkg/config"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewAuthMgr)
}

type AuthMgr struct {
	name   string
	users  *dao.UserStore
	secret string
}

type (
	LoginReq struct {
		Name     string `json:"name" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	LoginResp struct {
		Token string     `json:"token"`
		Name  string     `json:"name"`
		Role  model.Role `json:"role"`
	}
)

func NewAuthMgr(conf *RegisterConfig) Manager {
	return &AuthMgr{
		name:   "auth",
		users:  dao.NewUserStore(conf.DB),
		secret: config.GetConfig().Auth.AccessTokenSecret,
	}
}

func (mgr *AuthMgr) GetName() string { return mgr.name }

func (mgr *AuthMgr) RegisterPublic(g *gin.RouterGroup) {
	g.POST("login", mgr.Login)
}

func (mgr *AuthMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("me", mgr.WhoAmI)
}

func (mgr *AuthMgr) RegisterAdmin(_ *gin.RouterGroup) {}

// Login checks the credentials and issues an access token.
func (mgr *AuthMgr) Login(c *gin.Context) {
	var req LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	user, err := mgr.users.GetByName(c, req.Name)
	if err != nil {
		resputil.Error(c, fmt.Sprintf("failed to query user: %v", err), resputil.NotSpecified)
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		resputil.HTTPError(c, http.StatusUnauthorized, "invalid username or password", resputil.InvalidCredentials)
		return
	}

	token, err := util.CreateToken(mgr.secret, user)
	if err != nil {
		resputil.Error(c, fmt.Sprintf("failed to sign token: %v", err), resputil.NotSpecified)
		return
	}
	resputil.Success(c, LoginResp{Token: token, Name: user.Name, Role: user.Role})
}

func (mgr *AuthMgr) WhoAmI(c *gin.Context) {
	resputil.Success(c, gin.H{
		"name": c.GetString(middleware.KeyName),
		"role": c.MustGet(middleware.KeyRole),
	})
}
