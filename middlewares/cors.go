package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	corsMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	corsHeaders = "Content-Type, Authorization, Accept, Origin, Cache-Control, X-Requested-With"
)

// CORSMiddlewares admits the POS UI origins listed in allowedOrigins
// (comma separated, from CORS_ORIGIN). A request from any other browser
// origin gets no allow headers and its preflight is refused.
func CORSMiddlewares(allowedOrigins string) gin.HandlerFunc {
	var origins []string
	for _, o := range strings.Split(allowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowed := ""
		switch {
		case origin == "" && len(origins) > 0:
			allowed = origins[0]
		case origin != "":
			for _, o := range origins {
				if o == origin || o == "*" {
					allowed = origin
					break
				}
			}
		}

		h := c.Writer.Header()
		h.Add("Vary", "Origin")
		if allowed != "" {
			h.Set("Access-Control-Allow-Origin", allowed)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Headers", corsHeaders)
			h.Set("Access-Control-Allow-Methods", corsMethods)
		}

		if c.Request.Method == http.MethodOptions {
			if allowed == "" {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
