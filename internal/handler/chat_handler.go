package handler

import (
	"net/http"
	"strconv"

	"ecodesk/internal/domain"
	"ecodesk/internal/middleware"
	"ecodesk/internal/service"
	"ecodesk/internal/ws"

	"github.com/gin-gonic/gin"
)

// ChatHandler is the synchronous fallback for clients without a live socket:
// the same validation and authorization as the hub, results returned directly
// instead of pushed.
type ChatHandler struct {
	svc          *service.ChatService
	presence     *service.PresenceService
	uploads      Uploader
	historyLimit int
}

func NewChatHandler(svc *service.ChatService, presence *service.PresenceService, uploads Uploader, historyLimit int) *ChatHandler {
	return &ChatHandler{svc: svc, presence: presence, uploads: uploads, historyLimit: historyLimit}
}

// ListConversations returns the staff inbox, or the user's single
// conversation in the same shape.
func (h *ChatHandler) ListConversations(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var (
		summaries []service.ConversationSummary
		err       error
	)
	if middleware.GetIsStaff(c) {
		summaries, err = h.svc.ListForStaff(userID)
	} else {
		summaries, err = h.svc.ListForUser(userID)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": summaries})
}

// StartConversation opens (or returns) the caller's conversation with a staff
// member; staff_id 0 or absent picks the first available one.
func (h *ChatHandler) StartConversation(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req struct {
		StaffID uint `json:"staff_id"`
	}
	_ = c.ShouldBindJSON(&req)
	conv, err := h.svc.Start(userID, req.StaffID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

// GetConversation returns the conversation, its recent messages and the staff
// participant's presence.
func (h *ChatHandler) GetConversation(c *gin.Context) {
	userID := middleware.GetUserID(c)
	convID, ok := pathID(c)
	if !ok {
		return
	}
	conv, err := h.svc.GetAuthorized(convID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(h.historyLimit)))
	if limit <= 0 || limit > h.historyLimit {
		limit = h.historyLimit
	}
	beforeID, _ := strconv.ParseUint(c.DefaultQuery("before", "0"), 10, 64)
	msgs, err := h.svc.History(convID, userID, limit, uint(beforeID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"conversation":   conv,
		"messages":       ws.ToMessageDTOs(msgs),
		"staff_presence": h.presence.Status(conv.StaffID),
	})
}

// PostMessage accepts multipart form data: a text field and/or a file.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	userID := middleware.GetUserID(c)
	convID, ok := pathID(c)
	if !ok {
		return
	}
	text := c.PostForm("text")
	att, err := h.formAttachment(c, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	msg, err := h.svc.Append(convID, userID, text, att)
	if err != nil {
		respondError(c, err)
		return
	}
	dto := ws.ToMessageDTO(msg)
	c.JSON(http.StatusOK, gin.H{"message": dto})
}

func (h *ChatHandler) MarkRead(c *gin.Context) {
	userID := middleware.GetUserID(c)
	convID, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		MessageIDs []uint `json:"message_ids"`
	}
	_ = c.ShouldBindJSON(&req)
	if err := h.svc.MarkRead(convID, userID, req.MessageIDs); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *ChatHandler) UnreadCount(c *gin.Context) {
	userID := middleware.GetUserID(c)
	convID, ok := pathID(c)
	if !ok {
		return
	}
	n, err := h.svc.UnreadCount(convID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": n})
}

// UnreadTotal is the badge count across all conversations.
func (h *ChatHandler) UnreadTotal(c *gin.Context) {
	userID := middleware.GetUserID(c)
	n, err := h.svc.UnreadTotal(userID, middleware.GetIsStaff(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": n})
}

// DeleteConversation deactivates by default; ?hard=true removes the row and
// its messages. Both are staff-participant only.
func (h *ChatHandler) DeleteConversation(c *gin.Context) {
	userID := middleware.GetUserID(c)
	convID, ok := pathID(c)
	if !ok {
		return
	}
	var err error
	if c.Query("hard") == "true" {
		err = h.svc.HardDelete(convID, userID)
	} else {
		err = h.svc.Deactivate(convID, userID)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *ChatHandler) formAttachment(c *gin.Context, userID uint) (*domain.Attachment, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, nil // no file attached
	}
	return h.uploads.UploadAttachment(c.Request.Context(), fh, userID)
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return 0, false
	}
	return uint(id), true
}
