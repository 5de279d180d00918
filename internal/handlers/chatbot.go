package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/noteswriter/noteswriter-backend/internal/services"
)

type ChatInput struct {
	Message string `json:"message" binding:"required"`
}

func ChatHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy"})
	}
}

func Chat(relay *services.ChatRelay) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input ChatInput
		if !bindJSON(c, &input, "Missing 'message' in request body") {
			return
		}

		reply, err := relay.Relay(c.Request.Context(), input.Message)
		if errors.Is(err, services.ErrEmptyMessage) {
			c.JSON(400, gin.H{"error": "Missing 'message' in request body"})
			return
		}
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to generate response", "details": details(err)})
			return
		}

		c.JSON(200, gin.H{"response": reply})
	}
}
