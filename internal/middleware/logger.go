package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger logs each request with the same component-prefix format the rest of
// the pipeline uses.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		errs := ""
		if len(c.Errors) > 0 {
			errs = " " + c.Errors.String()
		}
		log.Printf("[HTTP] %s %s %d %v from %s%s",
			c.Request.Method,
			path,
			c.Writer.Status(),
			time.Since(start),
			c.ClientIP(),
			errs,
		)
	}
}
