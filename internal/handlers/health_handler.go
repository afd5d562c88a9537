package handlers

import (
	"context"
	"net/http"
	"time"

	"ambulance-finance/internal/utils"

	"github.com/gin-gonic/gin"
)

// HealthCheck is a named dependency check.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthHandler struct {
	checks []HealthCheck
}

func NewHealthHandler(checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	components := make(map[string]string, len(h.checks))
	for _, check := range h.checks {
		if err := check.Check(ctx); err != nil {
			components[check.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		components[check.Name] = "ok"
	}

	state := utils.StatusSuccess
	if status != http.StatusOK {
		state = utils.StatusError
	}

	c.JSON(status, gin.H{
		"status":     state,
		"service":    utils.AppName,
		"version":    utils.AppVersion,
		"components": components,
		"timestamp":  time.Now(),
	})
}
