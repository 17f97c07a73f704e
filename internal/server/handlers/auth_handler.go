package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/stockroom/internal/domain/models"
	"github.com/mamadbah2/stockroom/internal/service/session"
)

// AuthHandler exposes the session gate.
type AuthHandler struct {
	gate   *session.Gate
	logger *zap.Logger
}

// NewAuthHandler constructs the HTTP handler adapter.
func NewAuthHandler(gate *session.Gate, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{gate: gate, logger: logger}
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type sessionResponse struct {
	State session.State `json:"state"`
	User  *models.User  `json:"user,omitempty"`
}

func (h *AuthHandler) current() sessionResponse {
	resp := sessionResponse{State: h.gate.State()}
	if s := h.gate.Session(); s != nil {
		user := s.User
		resp.User = &user
	}
	return resp
}

// Session reports the gate state.
func (h *AuthHandler) Session(c *gin.Context) {
	c.JSON(http.StatusOK, h.current())
}

// SignIn authenticates with e-mail and password.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	if _, err := h.gate.SignIn(c.Request.Context(), req.Email, req.Password); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, h.current())
}

// SignUp creates an account. Accounts awaiting e-mail confirmation yield 202.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	s, err := h.gate.SignUp(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if s == nil {
		c.JSON(http.StatusAccepted, gin.H{"state": h.gate.State(), "confirmation_required": true})
		return
	}
	c.JSON(http.StatusCreated, h.current())
}

// SignOut ends the session. The local session is dropped even when the
// remote revocation fails.
func (h *AuthHandler) SignOut(c *gin.Context) {
	if err := h.gate.SignOut(c.Request.Context()); err != nil {
		h.logger.Warn("remote sign out failed", zap.Error(err))
	}
	c.JSON(http.StatusOK, h.current())
}
