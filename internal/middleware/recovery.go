package middleware

import (
	"fmt"
	"runtime"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"clinic-booking-server/internal/utils"
)

// Recovery turns a panic into a 500 envelope and logs the stack.
func Recovery(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				var stack [4096]byte
				n := runtime.Stack(stack[:], false)

				logger.Error().
					Str("request_id", c.GetString(requestIDKey)).
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(stack[:n])).
					Msg("panic recovered")

				utils.InternalServerError(c, "internal server error")
				c.Abort()
			}
		}()
		c.Next()
	}
}
