package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nabbi/ha-honeywell/internal/service"
)

// writeServiceError maps the service error taxonomy onto HTTP codes:
// validation 400, unknown device 404, invalid device state 409,
// device-side rejection 502, latched re-auth 503.
func (h *Handler) writeServiceError(c *gin.Context, logKey string, err error, kv ...any) {
	if h.log != nil {
		fields := append([]any{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}

	switch {
	case service.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUnknownDevice):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown device"})
	case service.IsInvalidState(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case service.IsOperationFailed(err):
		c.JSON(http.StatusBadGateway, gin.H{"error": "device rejected the command"})
	case errors.Is(err, service.ErrAuthRequired):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "re-authentication required"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// deviceID parses the :id path parameter. Writes a 400 and returns false
// on garbage.
func (h *Handler) deviceID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "device id must be an integer"})
		return 0, false
	}
	return id, true
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	status := h.services.Monitoring.Health()
	code := http.StatusOK
	if status.AuthRequired {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

// @Summary      List devices
// @Tags         devices
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, devices"
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/devices [get]
// @Security     BearerAuth
func (h *Handler) listDevices(c *gin.Context) {
	devices := h.services.Monitoring.Devices()
	c.JSON(http.StatusOK, gin.H{
		"count":   len(devices),
		"devices": devices,
	})
}

// @Summary      Get one device snapshot
// @Tags         devices
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/devices/{id} [get]
// @Security     BearerAuth
func (h *Handler) getDevice(c *gin.Context) {
	id, ok := h.deviceID(c)
	if !ok {
		return
	}
	st, err := h.services.Monitoring.Device(id)
	if err != nil {
		h.writeServiceError(c, "device_get_failed", err, "device_id", id)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Device diagnostics
// @Description  Raw portal payload verbatim plus the last persisted snapshot.
// @Tags         devices
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/devices/{id}/diagnostics [get]
// @Security     BearerAuth
func (h *Handler) getDiagnostics(c *gin.Context) {
	id, ok := h.deviceID(c)
	if !ok {
		return
	}
	diag, err := h.services.Monitoring.Diagnostics(c.Request.Context(), id)
	if err != nil {
		h.writeServiceError(c, "device_diagnostics_failed", err, "device_id", id)
		return
	}
	c.JSON(http.StatusOK, diag)
}
