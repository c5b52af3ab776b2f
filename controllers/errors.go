package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/pos-sync/gateway"
	"github.com/yeremiapane/pos-sync/syncengine"
	"github.com/yeremiapane/pos-sync/utils"
)

// statusFor maps engine and gateway errors to HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, syncengine.ErrInvalidInput),
		errors.Is(err, syncengine.ErrNegativeStock),
		errors.Is(err, syncengine.ErrUnsavedCategory):
		return http.StatusBadRequest
	case errors.Is(err, syncengine.ErrNotFound), errors.Is(err, gateway.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, syncengine.ErrDuplicateCategory), errors.Is(err, gateway.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, syncengine.ErrNoTenant), errors.Is(err, syncengine.ErrTenantChanged):
		return http.StatusPreconditionFailed
	case errors.Is(err, gateway.ErrForbidden), errors.Is(err, gateway.ErrUnauthenticated):
		return http.StatusForbidden
	case errors.Is(err, syncengine.ErrOffline), gateway.IsTransient(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func respondEngineError(c *gin.Context, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		utils.ErrorLogger.WithField("path", c.FullPath()).Errorf("Request failed: %v", err)
	}
	utils.RespondError(c, code, err)
}
