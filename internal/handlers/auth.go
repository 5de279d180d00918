package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noteswriter/noteswriter-backend/internal/models"
	"github.com/noteswriter/noteswriter-backend/internal/services"
)

type SignupInput struct {
	Email string `json:"email" binding:"required"`
}

// VerifyOTPInput carries the password already hashed by the client.
type VerifyOTPInput struct {
	Email    string `json:"email" binding:"required"`
	OTP      string `json:"otp" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type SigninInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func AuthHome() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "API is running",
			"service": "noteswriter-backend",
		})
	}
}

func Signup(otp *services.OTPManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input SignupInput
		if !bindJSON(c, &input, "Email is required") {
			return
		}

		req, err := otp.RequestCode(c.Request.Context(), input.Email)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrEmailRequired):
				c.JSON(400, gin.H{"error": "Email is required"})
			case errors.Is(err, services.ErrDispatchFailed):
				c.JSON(500, gin.H{"error": "Failed to send email", "details": details(err)})
			case errors.Is(err, services.ErrStore):
				c.JSON(500, gin.H{"error": "Failed to store OTP", "details": details(err)})
			default:
				c.JSON(500, gin.H{"error": "Failed to generate OTP", "details": err.Error()})
			}
			return
		}

		if !req.OTPSent() {
			c.JSON(200, gin.H{
				"status":   req.Status,
				"otpSent":  false,
				"timeLeft": services.Seconds(req.TimeLeft),
				"email":    req.Email,
			})
			return
		}

		c.JSON(200, gin.H{
			"status":  req.Status,
			"otpSent": true,
			"email":   req.Email,
		})
	}
}

func VerifyOTP(otp *services.OTPManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input VerifyOTPInput
		if !bindJSON(c, &input, "Email, OTP and password are required") {
			return
		}

		err := otp.VerifyAndRegister(c.Request.Context(), input.Email, input.OTP, input.Password)
		switch {
		case err == nil:
			c.JSON(200, gin.H{
				"status":   models.VerifyStatusVerified,
				"verified": true,
				"message":  "OTP verified and user created",
			})
		case errors.Is(err, services.ErrVerifyFieldsRequired):
			c.JSON(400, gin.H{"error": "Email, OTP and password are required"})
		case errors.Is(err, services.ErrOTPNotFound):
			verifyRejected(c, models.VerifyStatusNotFound, "OTP does not exist or has expired")
		case errors.Is(err, services.ErrOTPMismatch):
			verifyRejected(c, models.VerifyStatusInvalid, "Invalid OTP")
		case errors.Is(err, services.ErrTooManyAttempts):
			verifyRejected(c, models.VerifyStatusTooManyAttempts, "Too many invalid attempts, request a new OTP")
		case errors.Is(err, services.ErrRegistrationFailed):
			c.JSON(500, gin.H{
				"status":   models.VerifyStatusDBError,
				"verified": true,
				"message":  "OTP verified but failed to create user",
				"details":  details(err),
			})
		default:
			c.JSON(500, gin.H{"error": "Failed to verify OTP", "details": details(err)})
		}
	}
}

func verifyRejected(c *gin.Context, status, message string) {
	c.JSON(400, gin.H{
		"status":   status,
		"verified": false,
		"message":  message,
	})
}

func Signin(accounts *services.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input SigninInput
		if !bindJSON(c, &input, "Email and password are required") {
			return
		}

		ok, err := accounts.SignIn(c.Request.Context(), input.Email, input.Password)
		if errors.Is(err, services.ErrCredentialsRequired) {
			c.JSON(400, gin.H{"error": "Email and password are required"})
			return
		}
		if err != nil {
			c.JSON(500, gin.H{"error": "Database error", "details": err.Error()})
			return
		}

		c.JSON(200, gin.H{"success": ok})
	}
}

// DebugRedis shows the model output cached for an email. It reads only.
// The email is a catch-all parameter so addresses containing "/" still match.
func DebugRedis(otp *services.OTPManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := strings.TrimPrefix(c.Param("email"), "/")
		if email == "" {
			c.JSON(400, gin.H{"error": "Email is required"})
			return
		}

		out, err := otp.PeekCachedOutput(c.Request.Context(), email)
		if errors.Is(err, services.ErrCachedOutputNotFound) {
			c.JSON(404, gin.H{
				"email":     email,
				"redis_key": services.CachedOutputKey(email),
				"message":   "No data found in Redis",
			})
			return
		}
		if err != nil {
			c.JSON(500, gin.H{"error": err.Error()})
			return
		}

		c.JSON(200, gin.H{
			"email":       email,
			"redis_key":   out.Key,
			"ttl_seconds": services.Seconds(out.TTL),
			"data":        out.Data,
		})
	}
}
