package http

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/khoahotran/wellness-api/pkg/logger"
)

type Handlers struct {
	Auth    *AuthHandler
	Profile *ProfileHandler
	Photo   *PhotoHandler
}

type RouterConfig struct {
	// PublicPath is where uploads are served, e.g. /uploads.
	PublicPath     string
	AuthMiddleware gin.HandlerFunc
}

func NewRouter(h Handlers, cfg RouterConfig, log logger.Logger) *gin.Engine {
	binding.EnableDecoderDisallowUnknownFields = true

	router := gin.New()
	router.Use(Recovery(log), RequestLogger(log), cors.New(corsConfig()), ErrorMiddleware(log))

	api := router.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "UP"}) })

		authGroup := api.Group("/auth")
		authGroup.POST("/signup", h.Auth.Signup)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/logout", cfg.AuthMiddleware, h.Auth.Logout)

		userGroup := api.Group("/user")
		userGroup.Use(cfg.AuthMiddleware)
		{
			userGroup.GET("/profile", h.Profile.GetProfile)
			userGroup.PUT("/profile", h.Profile.UpdateProfile)
		}
	}

	publicPath := strings.Trim(cfg.PublicPath, "/")
	if publicPath == "" {
		publicPath = "uploads"
	}
	router.GET("/"+publicPath+"/:filename", h.Photo.ServePhoto)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found", "msg": "Route not found"})
	})

	return router
}

func corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", HeaderAuthToken)
	return cfg
}
