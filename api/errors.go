package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"offerhouse/lifecycle"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message})
}

// statusOf 將生命週期錯誤轉換為 HTTP 狀態碼
func statusOf(err error) int {
	switch {
	case errors.Is(err, lifecycle.ErrOfferNotFound):
		return http.StatusNotFound
	case errors.Is(err, lifecycle.ErrInvalidTransitionArgument):
		return http.StatusBadRequest
	case errors.Is(err, lifecycle.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, lifecycle.ErrProhibitedTransition),
		errors.Is(err, lifecycle.ErrConcurrencyConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (impl *ServerImpl) writeError(c *gin.Context, op string, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		impl.logger.Error("Request failed", slog.String("op", op), slog.Any("error", err))
		abortWithError(c, status, "internal error")
		return
	}
	impl.logger.Debug("Request rejected", slog.String("op", op), slog.Any("error", err))
	abortWithError(c, status, err.Error())
}
