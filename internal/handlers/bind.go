package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noteswriter/noteswriter-backend/internal/logger"
)

// bindJSON decodes the body into input and answers 400 itself when that fails.
// Any missing required field produces requiredMsg, so clients see one stable message per route.
func bindJSON(c *gin.Context, input interface{}, requiredMsg string) bool {
	err := c.ShouldBindJSON(input)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
		logger.Log.WithField("fields", fields).Debug("request missing required fields")
		c.JSON(400, gin.H{"error": requiredMsg})
		return false
	}

	c.JSON(400, gin.H{"error": "Invalid JSON body"})
	return false
}

// details returns the underlying cause of an error wrapped as "sentinel: cause".
func details(err error) string {
	if u, ok := err.(interface{ Unwrap() []error }); ok {
		if errs := u.Unwrap(); len(errs) > 0 {
			return errs[len(errs)-1].Error()
		}
	}
	return err.Error()
}
