package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/stockroom/internal/service/inventory"
	"github.com/mamadbah2/stockroom/internal/service/scan"
	"github.com/mamadbah2/stockroom/internal/service/session"
)

// respondError maps service errors onto status codes. Anything unknown is a
// failure of an upstream collaborator.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := http.StatusBadGateway
	message := "upstream request failed"

	switch {
	case errors.Is(err, inventory.ErrUnauthenticated):
		status, message = http.StatusUnauthorized, "sign in required"
	case errors.Is(err, session.ErrAuthFailed):
		status, message = http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, session.ErrSuperseded):
		status, message = http.StatusConflict, "session changed, retry"
	case errors.Is(err, inventory.ErrProductNotFound):
		status, message = http.StatusNotFound, "product not found"
	case errors.Is(err, inventory.ErrCategoryNotFound):
		status, message = http.StatusNotFound, "category not found"
	case errors.Is(err, scan.ErrNotScanning):
		status, message = http.StatusConflict, "no active scan"
	}

	if status == http.StatusBadGateway {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	} else {
		logger.Debug("request rejected", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": message})
}

func badRequest(c *gin.Context, logger *zap.Logger, err error) {
	logger.Warn("invalid request body", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
}
