package http

import (
	"github.com/error-99/videocall/internal/auth"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter(userController *UserController, signalController *SignalController, tokens *auth.TokenManager, allowedOrigins []string) *gin.Engine {
	router := gin.Default()

	config := cors.DefaultConfig()
	config.AllowOrigins = allowedOrigins
	config.AllowCredentials = true
	config.AllowHeaders = []string{
		"Authorization",
		"Content-Type",
		"Origin",
		"Accept",
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	router.Use(cors.New(config))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", userController.Register)
	authGroup.POST("/login", userController.Login)

	api.GET("/online-users", AuthRequired(tokens), userController.ListOnline)

	users := api.Group("/users")
	users.Use(AuthRequired(tokens))
	users.GET("/:userID", userController.GetUser)

	webrtcGroup := api.Group("/webrtc")
	webrtcGroup.Use(AuthRequired(tokens))
	webrtcGroup.GET("/config", signalController.ICEConfig)

	// Token travels as a query parameter; the handler authenticates itself.
	api.GET("/signal/ws", signalController.Connect)

	return router
}
