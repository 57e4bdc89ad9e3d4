package httptransport

import (
	"log/slog"

	"github.com/accountd/accountd/internal/token"
	"github.com/accountd/accountd/internal/transport/http/handler"
	"github.com/accountd/accountd/internal/transport/http/middleware"
	"github.com/accountd/accountd/internal/usecase"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

func NewRouter(logger *slog.Logger, authHandler *handler.AuthHandler, userHandler *handler.UserHandler,
	tokens *token.Service, users *usecase.UserUsecase) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	// Public routes
	r.POST("/register", authHandler.Register)
	r.POST("/login", authHandler.Login)
	r.POST("/forgotPassword", authHandler.ForgotPassword)
	r.POST("/resetPassword", authHandler.ResetPassword)
	r.GET("/verify/:id", authHandler.Verify)

	// Protected routes
	gate := middleware.Auth(tokens, users)
	r.GET("/list", gate, userHandler.List)
	r.GET("/", gate, userHandler.Me)
	r.PATCH("/", gate, userHandler.Update)
	r.DELETE("/", gate, userHandler.Delete)

	return r
}
