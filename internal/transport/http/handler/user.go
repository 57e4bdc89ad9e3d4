package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/accountd/accountd/internal/domain"
	"github.com/accountd/accountd/internal/query"
	"github.com/accountd/accountd/internal/transport/http/middleware"
	"github.com/accountd/accountd/internal/usecase"
	"github.com/gin-gonic/gin"
)

// profileUsecaser is the subset of UserUsecase the protected endpoints need.
type profileUsecaser interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Update(ctx context.Context, id string, in usecase.UpdateInput) (*domain.User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, spec query.Spec) (usecase.ListResult, error)
}

type UserHandler struct {
	users  profileUsecaser
	logger *slog.Logger
}

func NewUserHandler(users profileUsecaser, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger.With("component", "user_handler")}
}

// userPayload is the public shape of an account. The password hash never
// leaves the service.
type userPayload struct {
	ID        string `json:"_id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	CreatedAt int64  `json:"createdAt"`
	Active    bool   `json:"active"`
	JWTToken  string `json:"jwtToken,omitempty"`
}

func newUserPayload(u *domain.User) userPayload {
	return userPayload{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		CreatedAt: u.CreatedAt,
		Active:    u.Active,
	}
}

// GET /
func (h *UserHandler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		failed(c, http.StatusNotFound, errDataNotFound)
		return
	}

	current, err := h.users.GetByID(c.Request.Context(), user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			failed(c, http.StatusNotFound, errDataNotFound)
			return
		}
		failed(c, http.StatusBadRequest, err.Error())
		return
	}
	success(c, http.StatusOK, newUserPayload(current))
}

type updateRequest struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Active    *bool   `json:"active"`
}

// PATCH /
// Password and createdAt are not part of the schema, so they cannot be
// changed from here.
func (h *UserHandler) Update(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		failed(c, http.StatusNotFound, errDataNotFound)
		return
	}

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failed(c, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.users.Update(c.Request.Context(), user.ID, usecase.UpdateInput{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Active:    req.Active,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			failed(c, http.StatusNotFound, errDataNotFound)
			return
		}
		failed(c, http.StatusBadRequest, err.Error())
		return
	}
	success(c, http.StatusOK, newUserPayload(updated))
}

// DELETE /
func (h *UserHandler) Delete(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		failed(c, http.StatusNotFound, errDataNotFound)
		return
	}

	if err := h.users.Delete(c.Request.Context(), user.ID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			failed(c, http.StatusNotFound, errDataNotFound)
			return
		}
		failed(c, http.StatusBadRequest, err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

// projectedKeys maps query-spec projection fields to response JSON keys.
var projectedKeys = map[string]string{
	"id":         "_id",
	"username":   "username",
	"email":      "email",
	"first_name": "firstName",
	"last_name":  "lastName",
	"createdAt":  "createdAt",
	"active":     "active",
}

// GET /list
func (h *UserHandler) List(c *gin.Context) {
	spec := query.Parse(c.Request.URL.Query())

	result, err := h.users.List(c.Request.Context(), spec)
	if err != nil {
		h.logger.Error("list users", "error", err)
		failed(c, http.StatusBadRequest, err.Error())
		return
	}
	if len(result.Users) == 0 {
		failed(c, http.StatusBadRequest, []any{})
		return
	}

	data := make([]gin.H, 0, len(result.Users))
	for _, u := range result.Users {
		data = append(data, projectUser(u, spec.Fields))
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       statusSuccess,
		"currentPage":  spec.Page,
		"nextPage":     result.NextPage,
		"previousPage": result.PreviousPage,
		"results":      result.Count,
		"data":         data,
	})
}

// projectUser keeps only the requested attributes, under their public names.
func projectUser(u *domain.User, fields []string) gin.H {
	values := map[string]any{
		"id":         u.ID,
		"username":   u.Username,
		"email":      u.Email,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"createdAt":  u.CreatedAt,
		"active":     u.Active,
	}
	out := gin.H{}
	for _, f := range fields {
		if v, ok := values[f]; ok {
			out[projectedKeys[f]] = v
		}
	}
	return out
}
