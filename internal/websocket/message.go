package websocket

import (
	"encoding/json"
	"time"

	"github.com/dom/kaf-catalog/internal/domain"
)

type MessageType string

const (
	// Server to Client
	MessageTypeHello      MessageType = "HELLO"
	MessageTypeTitleAdded MessageType = "CATALOG_TITLE_ADDED"
	MessageTypeError      MessageType = "ERROR"

	// Client to Server
	MessageTypePing MessageType = "PING"
	MessageTypePong MessageType = "PONG"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		payloadBytes = b
	}
	return &Message{
		Type:      msgType,
		Payload:   payloadBytes,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

type HelloPayload struct {
	UserID string      `json:"userId,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
}

type TitleAddedPayload struct {
	Title domain.CatalogCard `json:"title"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
