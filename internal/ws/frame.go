package ws

import (
	"encoding/json"
	"fmt"

	"ecodesk/internal/domain"
)

// Incoming frames are a closed set of variants; decoding rejects anything
// outside it instead of falling through an untyped dispatch.
type Frame interface {
	isFrame()
}

type MessageFrame struct {
	Text       string             `json:"text"`
	Attachment *domain.Attachment `json:"attachment,omitempty"`
}

type TypingFrame struct {
	IsTyping bool `json:"is_typing"`
}

type ReadFrame struct {
	MessageIDs []uint `json:"message_ids"`
}

func (MessageFrame) isFrame() {}
func (TypingFrame) isFrame()  {}
func (ReadFrame) isFrame()    {}

type frameEnvelope struct {
	Type string `json:"type"`
}

// DecodeFrame parses one client frame into its variant.
func DecodeFrame(data []byte) (Frame, error) {
	var env frameEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}
	switch env.Type {
	case "message":
		var f MessageFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("malformed message frame: %w", err)
		}
		return f, nil
	case "typing":
		var f TypingFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("malformed typing frame: %w", err)
		}
		return f, nil
	case "read":
		var f ReadFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("malformed read frame: %w", err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unknown frame type %q", env.Type)
	}
}
