package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/OnishkovValera/CyberSec1/internal/domain"
	"github.com/OnishkovValera/CyberSec1/internal/service"
)

// TokenValidator checks bearer tokens presented by clients.
type TokenValidator interface {
	ExtractSubject(token string) (string, error)
	IsValid(token, expectedSubject string) bool
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	users  service.UserService
	tokens TokenValidator
	logger logrus.FieldLogger
}

func NewHandler(users service.UserService, tokens TokenValidator, logger logrus.FieldLogger) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestIDMiddleware(), accessLogMiddleware(h.logger), corsMiddleware())

	router.POST("/auth/login", h.login)

	api := router.Group("/api")
	{
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})

		secured := api.Group("", h.authenticate())
		secured.GET("/me", h.me)
		secured.GET("/data", requirePrincipal(), h.data)
	}
}

// Empty fields are left to the verifier so they fail like any other bad credentials.
type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type UserResponse struct {
	ID      int64   `json:"id"`
	Name    *string `json:"name"`
	Surname *string `json:"surname"`
	Login   string  `json:"login"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	token, err := h.users.Login(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, loginResponse{Token: token})
}

func (h *Handler) me(c *gin.Context) {
	principal, _ := principalFrom(c)
	user, err := h.users.Me(c.Request.Context(), principal)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	c.JSON(http.StatusOK, userToResponse(*user))
}

func (h *Handler) data(c *gin.Context) {
	users, err := h.users.ListAll(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]UserResponse, len(users))
	for i := range users {
		resp[i] = userToResponse(users[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAuthenticationFailed):
		c.JSON(http.StatusUnauthorized, gin.H{"error": service.ErrAuthenticationFailed.Error()})
	case errors.Is(err, service.ErrNotFound):
		h.requestLogger(c).WithError(err).Error("authenticated principal has no stored user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	default:
		h.requestLogger(c).WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *Handler) requestLogger(c *gin.Context) logrus.FieldLogger {
	return h.logger.WithField("request_id", c.GetString(requestIDKey))
}

func userToResponse(user domain.PublicUser) UserResponse {
	return UserResponse{
		ID:      user.ID,
		Name:    user.Name,
		Surname: user.Surname,
		Login:   user.Login,
	}
}
