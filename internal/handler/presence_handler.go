package handler

import (
	"net/http"
	"strconv"

	"ecodesk/internal/middleware"
	"ecodesk/internal/service"

	"github.com/gin-gonic/gin"
)

type PresenceHandler struct {
	presence *service.PresenceService
}

func NewPresenceHandler(presence *service.PresenceService) *PresenceHandler {
	return &PresenceHandler{presence: presence}
}

// GetStaffPresence returns the derived status for one staff member. An
// unknown id yields "never seen" rather than an error.
func (h *PresenceHandler) GetStaffPresence(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid staff id"})
		return
	}
	status := h.presence.Status(uint(id))
	c.JSON(http.StatusOK, gin.H{
		"status":          status,
		"recently_active": h.presence.RecentlyActive(uint(id)),
	})
}

// Heartbeat refreshes the caller's last_seen. Staff only.
func (h *PresenceHandler) Heartbeat(c *gin.Context) {
	h.presence.Heartbeat(middleware.GetUserID(c))
	c.JSON(http.StatusOK, gin.H{"success": true})
}
