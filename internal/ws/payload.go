package ws

import (
	"encoding/json"
	"time"

	"ecodesk/internal/domain"
	"ecodesk/internal/models"

	"github.com/samber/lo"
)

// MessageDTO is the wire shape of a stored message, shared by the socket
// frames and the REST gateway.
type MessageDTO struct {
	ID             uint               `json:"id"`
	ConversationID uint               `json:"conversation_id"`
	SenderID       uint               `json:"sender_id"`
	SenderName     string             `json:"sender_name"`
	SenderIsStaff  bool               `json:"sender_is_staff"`
	Text           string             `json:"text"`
	IsRead         bool               `json:"is_read"`
	Timestamp      time.Time          `json:"timestamp"`
	File           *domain.Attachment `json:"file,omitempty"`
}

func ToMessageDTO(m *models.Message) MessageDTO {
	return MessageDTO{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		SenderName:     m.Sender.DisplayName(),
		SenderIsStaff:  m.Sender.IsStaff,
		Text:           m.Text,
		IsRead:         m.IsRead,
		Timestamp:      m.CreatedAt,
		File:           m.Attachment(),
	}
}

func ToMessageDTOs(msgs []models.Message) []MessageDTO {
	return lo.Map(msgs, func(m models.Message, _ int) MessageDTO {
		return ToMessageDTO(&m)
	})
}

func encodeHistory(msgs []models.Message) []byte {
	data, _ := json.Marshal(struct {
		Type     string       `json:"type"`
		Messages []MessageDTO `json:"messages"`
	}{Type: "history", Messages: ToMessageDTOs(msgs)})
	return data
}

func encodeMessage(m *models.Message) []byte {
	data, _ := json.Marshal(struct {
		Type     string     `json:"type"`
		Message  MessageDTO `json:"message"`
		SenderID uint       `json:"sender_id"`
	}{Type: "message", Message: ToMessageDTO(m), SenderID: m.SenderID})
	return data
}

func encodeAck(m *models.Message) []byte {
	data, _ := json.Marshal(struct {
		Type    string     `json:"type"`
		Message MessageDTO `json:"message"`
	}{Type: "ack", Message: ToMessageDTO(m)})
	return data
}

func encodeTyping(userID uint, username string, isTyping bool) []byte {
	data, _ := json.Marshal(struct {
		Type     string `json:"type"`
		UserID   uint   `json:"user_id"`
		Username string `json:"username"`
		IsTyping bool   `json:"is_typing"`
	}{Type: "typing", UserID: userID, Username: username, IsTyping: isTyping})
	return data
}

// EncodeError is also used by the upgrade handler before the client joins.
func EncodeError(msg string, retryable bool) []byte {
	data, _ := json.Marshal(struct {
		Type      string `json:"type"`
		Error     string `json:"error"`
		Retryable bool   `json:"retryable"`
	}{Type: "error", Error: msg, Retryable: retryable})
	return data
}
