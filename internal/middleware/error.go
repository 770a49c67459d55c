package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "billminder/internal/errors"
	"billminder/internal/logger"
)

// ErrorHandler turns the last error attached with c.Error into the standard
// error body when the handler has not written a response yet. Only AppError
// codes and messages reach the client.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		appErr := apperrors.ErrInternalServer
		var target *apperrors.AppError
		if errors.As(err, &target) {
			appErr = target
		}

		if appErr.StatusCode >= 500 || appErr.Internal != nil {
			logger.Named("http").Errorw("request failed",
				"code", appErr.Code,
				"error", apperrors.Detail(err),
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"request_id", c.GetString(requestIDKey),
				"user_id", c.GetString("userID"),
			)
		}
		abortWithError(c, appErr)
	}
}
