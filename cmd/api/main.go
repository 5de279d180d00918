package main

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noteswriter/noteswriter-backend/internal/config"
	"github.com/noteswriter/noteswriter-backend/internal/database"
	"github.com/noteswriter/noteswriter-backend/internal/handlers"
	"github.com/noteswriter/noteswriter-backend/internal/logger"
	"github.com/noteswriter/noteswriter-backend/internal/services"
	"github.com/noteswriter/noteswriter-backend/pkg/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Init(cfg.LogLevel, cfg.IsProduction())
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		logger.Log.Fatal("DATABASE_URL or DB_HOST/DB_USER/DB_NAME must be set")
	}
	db, err := database.InitDB(cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatalf("Failed to initialize database: %v", err)
	}

	store, err := services.OpenStore(ctx, cfg.RedisURL)
	if err != nil {
		logger.Log.Fatalf("Failed to initialize OTP store: %v", err)
	}

	mailer := newMailer(ctx, cfg)

	// Chat is optional; without a key every chat request answers 500.
	var gen services.Generator
	if gemini, err := services.NewGeminiGenerator(ctx, cfg.GeminiAPIKey); err != nil {
		logger.Log.Warnf("Gemini initialization warning: %v", err)
	} else {
		gen = gemini
	}

	users := services.NewGormUserStore(db)
	otp := services.NewOTPManager(store, mailer, users, cfg.OTPMaxAttempts)
	accounts := services.NewAccountService(users)
	relay := services.NewChatRelay(gen)

	r := handlers.SetupRouter(otp, accounts, relay, cfg.AllowedOrigins)

	logger.Log.WithField("port", cfg.Port).Info("noteswriter-backend listening")
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}

// newMailer prefers the Gmail API and falls back to SMTP.
func newMailer(ctx context.Context, cfg *config.Config) utils.Mailer {
	if cfg.Gmail.Enabled() {
		gmail, err := utils.NewGmailMailer(ctx, utils.GmailCredentials{
			Token:        cfg.Gmail.Token,
			RefreshToken: cfg.Gmail.RefreshToken,
			TokenURI:     cfg.Gmail.TokenURI,
			ClientID:     cfg.Gmail.ClientID,
			ClientSecret: cfg.Gmail.ClientSecret,
			Expiry:       cfg.Gmail.Expiry,
		})
		if err == nil {
			logger.Log.Info("OTP mail will be sent through the Gmail API")
			return gmail
		}
		logger.Log.Warnf("Gmail initialization warning: %v", err)
	}
	if !cfg.SMTP.Enabled() {
		logger.Log.Warn("No email transport configured, signup codes cannot be delivered")
	}
	return utils.NewSMTPMailer(cfg.SMTP.From, cfg.SMTP.Password, cfg.SMTP.Host, cfg.SMTP.Port)
}
