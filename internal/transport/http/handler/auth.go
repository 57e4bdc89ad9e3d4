package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/accountd/accountd/internal/domain"
	"github.com/accountd/accountd/internal/usecase"
	"github.com/gin-gonic/gin"
)

// accountUsecaser is the subset of UserUsecase the public endpoints need.
// Defined here (point of use) so tests can inject a fake.
type accountUsecaser interface {
	Register(ctx context.Context, in usecase.RegisterInput) (*domain.User, error)
	Login(ctx context.Context, in usecase.LoginInput) (*domain.User, string, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, rawToken, newPassword string) error
	MarkVerified(ctx context.Context, id string) (*domain.User, error)
}

type AuthHandler struct {
	accounts     accountUsecaser
	logger       *slog.Logger
	templatePath string
}

func NewAuthHandler(accounts accountUsecaser, templatePath string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		accounts:     accounts,
		logger:       logger.With("component", "auth_handler"),
		templatePath: templatePath,
	}
}

type registerRequest struct {
	Username  string `json:"username"  binding:"required"`
	Email     string `json:"email"     binding:"required,email"`
	Password  string `json:"password"  binding:"required"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// POST /register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failed(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), usecase.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		failed(c, http.StatusBadRequest, err.Error())
		return
	}

	success(c, http.StatusCreated, newUserPayload(user))
}

type loginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// POST /login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failed(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" && req.Username == "" {
		c.String(http.StatusBadRequest, "Email or username is required")
		return
	}
	if req.Password == "" {
		c.String(http.StatusBadRequest, "Password is required")
		return
	}

	user, accessToken, err := h.accounts.Login(c.Request.Context(), usecase.LoginInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		failed(c, http.StatusBadRequest, err.Error())
		return
	}

	payload := newUserPayload(user)
	payload.JWTToken = accessToken
	success(c, http.StatusOK, payload)
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// POST /forgotPassword
// Responds 200 with status Success whether or not the account exists; only
// the message text differs.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failed(c, http.StatusBadRequest, err.Error())
		return
	}

	err := h.accounts.ForgotPassword(c.Request.Context(), req.Email)
	if errors.Is(err, domain.ErrUserNotFound) {
		success(c, http.StatusOK, errEmailNotFound)
		return
	}
	if err != nil {
		h.logger.Error("forgot password", "error", err)
		failed(c, http.StatusBadRequest, err.Error())
		return
	}

	success(c, http.StatusOK, msgEmailSent)
}

type resetPasswordRequest struct {
	UniqueString string `json:"uniqueString"`
	Password     string `json:"password"`
}

// POST /resetPassword
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failed(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.UniqueString == "" {
		c.String(http.StatusBadRequest, "Verification Failed")
		return
	}
	if req.Password == "" {
		c.String(http.StatusBadRequest, "Password is required")
		return
	}

	if err := h.accounts.ResetPassword(c.Request.Context(), req.UniqueString, req.Password); err != nil {
		failed(c, http.StatusBadRequest, err.Error())
		return
	}

	success(c, http.StatusOK, msgPasswordChanged)
}

// GET /verify/:id
// The trailing slug is the user id from the verification link. Serves the
// verified page as HTML; template read failures are the one place a plain
// 500 surfaces.
func (h *AuthHandler) Verify(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.String(http.StatusBadRequest, errVerificationFailed)
		return
	}

	user, err := h.accounts.MarkVerified(c.Request.Context(), id)
	if err != nil || !user.Active {
		c.String(http.StatusBadRequest, errVerificationFailed)
		return
	}

	page, err := os.ReadFile(h.templatePath)
	if err != nil {
		h.logger.Error("read verified template", "path", h.templatePath, "error", err)
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}
