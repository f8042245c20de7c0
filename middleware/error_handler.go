package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/sharelink/utils"
)

const (
	internalErrorCode    = 50000
	internalErrorMessage = "Internal server error"
)

// ErrorHandler turns the last error pushed by a handler into the JSON error body.
// Classified errors keep their status and message; anything else is logged and answered with a 500.
func ErrorHandler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Next()

		if len(ctx.Errors) == 0 {
			return
		}
		err := ctx.Errors.Last().Err

		appErr, ok := utils.AsAppError(err)
		if ok && appErr.Kind != utils.KindInternal {
			if appErr.Err != nil {
				utils.Logger.Debug("request rejected",
					zap.String("path", ctx.Request.URL.Path),
					zap.Int("code", appErr.Code),
					zap.Error(appErr.Err))
			}
			if !ctx.Writer.Written() {
				utils.Error(ctx, appErr.Status(), appErr.Code, appErr.Message)
			}
			return
		}

		utils.Logger.Error("request failed",
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.Request.URL.Path),
			zap.Error(err))
		if !ctx.Writer.Written() {
			utils.Error(ctx, http.StatusInternalServerError, internalErrorCode, internalErrorMessage)
		}
	}
}
