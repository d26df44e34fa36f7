package router

import (
	"github.com/labstack/echo/v4"

	"foundly/internal/adapter/api/handler"
	"foundly/internal/adapter/api/middleware"
	"foundly/internal/infrastructure/ratelimit"
)

func SetupFileRouter(e *echo.Echo, fileHandler *handler.FileHandler, authMiddleware *middleware.AuthMiddleware, rateLimit *middleware.RateLimitMiddleware) {
	group := e.Group("/v1/files")
	group.Use(authMiddleware.Authenticate)

	group.POST("/upload", fileHandler.UploadFile, rateLimit.Limit(ratelimit.ActionUploadFile))
}
