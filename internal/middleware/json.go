package middleware

import "github.com/gin-gonic/gin"

// RequireJSON rejects requests whose body is not declared as application/json.
// Media type parameters such as charset are accepted.
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.ContentType() != gin.MIMEJSON {
			c.AbortWithStatusJSON(400, gin.H{"error": "Content-Type must be application/json"})
			return
		}
		c.Next()
	}
}
