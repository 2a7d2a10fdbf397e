package handlers

import (
	"errors"
	"net/http"

	"github.com/Butonix/localhub/internal/auth"
	apierrors "github.com/Butonix/localhub/internal/errors"
	"github.com/Butonix/localhub/internal/logger"
	"github.com/Butonix/localhub/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Register creates an account and starts a session
// POST /api/v1/auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.auth.Register(c.Request.Context(), req)
	if errors.Is(err, auth.ErrUserExists) {
		util.RespondWithAPIError(c, apierrors.Conflict("user"))
		return
	}
	if err != nil {
		logger.Log.Error("Registration failed", zap.Error(err))
		util.RespondInternalError(c, "registration failed")
		return
	}

	h.setSession(c, resp.Token)
	c.JSON(http.StatusCreated, resp)
}

// Login checks the password and sets the session cookie
// POST /api/v1/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req auth.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), req)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		util.RespondUnauthorized(c, "invalid email or password")
		return
	}
	if err != nil {
		logger.Log.Error("Login failed", zap.Error(err))
		util.RespondInternalError(c, "login failed")
		return
	}

	logger.Log.Info("User logged in", logger.WithUserID(resp.User.ID), logger.WithIP(c.ClientIP()))
	h.setSession(c, resp.Token)
	c.JSON(http.StatusOK, resp)
}

// Logout clears the session cookie
// POST /api/v1/auth/logout
func (h *Handlers) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.SessionCookie, "", -1, "/", "", h.secureCookies, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *Handlers) setSession(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.SessionCookie, token, int(h.sessionTTL.Seconds()), "/", "", h.secureCookies, true)
}
