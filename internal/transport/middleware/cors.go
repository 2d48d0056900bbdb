package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS lets the back-office frontend call the API from any origin and send
// the actor header.
func CORS() gin.HandlerFunc {
	cc := cors.DefaultConfig()
	cc.AllowAllOrigins = true
	cc.AllowHeaders = append(cc.AllowHeaders, "X-Actor-ID")
	cc.MaxAge = 12 * time.Hour
	return cors.New(cc)
}
