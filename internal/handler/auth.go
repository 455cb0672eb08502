package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/utils"
)

// AuthHandler issues access tokens to the catalogue operator.
type AuthHandler struct {
	Cfg config.Config
}

func NewAuthHandler(cfg config.Config) *AuthHandler {
	return &AuthHandler{Cfg: cfg}
}

type loginReq struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type loginResp struct {
	Operator string    `json:"operator"`
	Role     string    `json:"role"`
	Access   tokenPart `json:"access"`
}

// Login checks the operator credentials and returns an ADMIN access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if msg, ok := bindValid(c, &req); !ok {
		return badRequest(c, msg)
	}
	user := strings.TrimSpace(req.Username)
	// both checks always run
	nameOK := subtle.ConstantTimeCompare([]byte(user), []byte(h.Cfg.AdminUser)) == 1
	passOK := utils.VerifyPassword(h.Cfg.AdminPasswordHash, req.Password)
	if !nameOK || !passOK {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, user, utils.RoleAdmin, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "issue access failed"})
	}
	return c.JSON(http.StatusOK, loginResp{
		Operator: user,
		Role:     utils.RoleAdmin,
		Access:   tokenPart{Token: access.Token, Expires: access.Exp},
	})
}
