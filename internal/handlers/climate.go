package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nabbi/ha-honeywell/internal/service"
)

const (
	statusModeSet      = "mode_set"
	statusTempSet      = "temperature_set"
	statusPresetSet    = "preset_set"
	errInvalidBodyPref = "invalid body: "
)

// Request DTO for setting the operating mode.
type modeRequest struct {
	Mode string `json:"mode" binding:"required"` // off | heat | cool | auto
}

// Request DTO for setpoint changes: a single target or a low/high pair.
type temperatureRequest struct {
	Target *float64 `json:"target,omitempty"`
	Low    *float64 `json:"low,omitempty"`
	High   *float64 `json:"high,omitempty"`
}

// Request DTO for preset changes.
type presetRequest struct {
	Preset string `json:"preset" binding:"required"` // away | hold | none
}

// @Summary      Set operating mode
// @Tags         climate
// @Accept       json
// @Produce      json
// @Param        body  body  modeRequest  true  "Mode payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/devices/{id}/climate/mode [post]
// @Security     BearerAuth
func (h *Handler) setClimateMode(c *gin.Context) {
	id, ok := h.deviceID(c)
	if !ok {
		return
	}
	var req modeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	if err := h.services.Climate.SetMode(c.Request.Context(), id, req.Mode); err != nil {
		h.writeServiceError(c, "climate_set_mode_failed", err, "device_id", id, "mode", req.Mode)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusModeSet, "mode": req.Mode})
}

// @Summary      Set temperature
// @Description  Single target in heat/cool mode, low/high pair otherwise.
// @Tags         climate
// @Accept       json
// @Produce      json
// @Param        body  body  temperatureRequest  true  "Temperature payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/devices/{id}/climate/temperature [post]
// @Security     BearerAuth
func (h *Handler) setTemperature(c *gin.Context) {
	id, ok := h.deviceID(c)
	if !ok {
		return
	}
	var req temperatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	params := service.TemperatureParams{Target: req.Target, Low: req.Low, High: req.High}
	if err := h.services.Climate.SetTemperature(c.Request.Context(), id, params); err != nil {
		h.writeServiceError(c, "climate_set_temperature_failed", err, "device_id", id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusTempSet})
}

// @Summary      Set preset
// @Tags         climate
// @Accept       json
// @Produce      json
// @Param        body  body  presetRequest  true  "Preset payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/devices/{id}/climate/preset [post]
// @Security     BearerAuth
func (h *Handler) setPreset(c *gin.Context) {
	id, ok := h.deviceID(c)
	if !ok {
		return
	}
	var req presetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	if err := h.services.Climate.SetPreset(c.Request.Context(), id, req.Preset); err != nil {
		h.writeServiceError(c, "climate_set_preset_failed", err, "device_id", id, "preset", req.Preset)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusPresetSet, "preset": req.Preset})
}
