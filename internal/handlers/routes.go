package handlers

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/noteswriter/noteswriter-backend/internal/middleware"
	"github.com/noteswriter/noteswriter-backend/internal/services"
)

// SetupRouter builds the engine with every route the service exposes.
func SetupRouter(otp *services.OTPManager, accounts *services.AccountService, relay *services.ChatRelay, allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// Configure CORS
	config := cors.DefaultConfig()
	if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = allowedOrigins
	}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(config))

	r.GET("/", Home())

	auth := r.Group("/auth")
	{
		auth.GET("/", AuthHome())
		auth.POST("/signup", middleware.RequireJSON(), Signup(otp))
		auth.POST("/verify_otp", middleware.RequireJSON(), VerifyOTP(otp))
		auth.POST("/signin", middleware.RequireJSON(), Signin(accounts))
		auth.GET("/debug/redis/*email", DebugRedis(otp))
	}

	chatbot := r.Group("/chatbot")
	{
		chatbot.GET("/", ChatHealth())
		chatbot.POST("/chat", middleware.RequireJSON(), Chat(relay))
	}

	return r
}
