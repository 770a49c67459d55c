package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"billminder/internal/scheduler"
)

// SweepHandler lets an external scheduler trigger the reminder sweeps when
// the in-process one is disabled.
type SweepHandler struct {
	sweeps scheduler.SweepRunner
	now    func() time.Time
}

// NewSweepHandler creates a new SweepHandler.
func NewSweepHandler(sweeps scheduler.SweepRunner) *SweepHandler {
	return &SweepHandler{sweeps: sweeps, now: time.Now}
}

// RunRegular runs the advance reminder sweep
// @Summary     Run regular sweep
// @Tags        sweeps
// @Produce     json
// @Param       X-API-Key header string true "Sweep API key"
// @Success     200 {object} object "Number of reminders sent"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Router      /sweeps/regular [post]
func (h *SweepHandler) RunRegular(c *gin.Context) {
	sent, err := h.sweeps.RunRegularAt(c.Request.Context(), h.now())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kind": scheduler.KindRegular, "sent": sent})
}

// RunUrgent runs the due-today reminder sweep
// @Summary     Run urgent sweep
// @Tags        sweeps
// @Produce     json
// @Param       X-API-Key header string true "Sweep API key"
// @Success     200 {object} object "Number of reminders sent"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Router      /sweeps/urgent [post]
func (h *SweepHandler) RunUrgent(c *gin.Context) {
	sent, err := h.sweeps.RunUrgentAt(c.Request.Context(), h.now())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kind": scheduler.KindUrgent, "sent": sent})
}
