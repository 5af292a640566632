package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Request DTO for humidifier commands. Action on or off ignores the
// setpoint; action setpoint requires it.
type humidifierRequest struct {
	Action   string `json:"action" binding:"required"` // on | off | setpoint
	Setpoint *int   `json:"setpoint,omitempty"`
}

// @Summary      Humidifier or dehumidifier command
// @Tags         humidifier
// @Accept       json
// @Produce      json
// @Param        kind  path  string             true  "humidifier or dehumidifier"
// @Param        body  body  humidifierRequest  true  "Command payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/devices/{id}/humidifier/{kind} [post]
// @Security     BearerAuth
func (h *Handler) humidifierCommand(c *gin.Context) {
	id, ok := h.deviceID(c)
	if !ok {
		return
	}
	kind := c.Param("kind")

	var req humidifierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}

	ctx := c.Request.Context()
	var err error
	switch req.Action {
	case "on":
		err = h.services.Humidifier.TurnOn(ctx, id, kind)
	case "off":
		err = h.services.Humidifier.TurnOff(ctx, id, kind)
	case "setpoint":
		if req.Setpoint == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "action setpoint requires a setpoint value"})
			return
		}
		err = h.services.Humidifier.SetHumidity(ctx, id, kind, *req.Setpoint)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "action must be on, off or setpoint"})
		return
	}
	if err != nil {
		h.writeServiceError(c, "humidifier_command_failed", err, "device_id", id, "kind", kind, "action", req.Action)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "kind": kind, "action": req.Action})
}
