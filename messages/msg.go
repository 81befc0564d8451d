// Package messages defines the JSON messages exchanged with Kenaz realtime
// clients.
package messages

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

// MsgType is the type of a message.
type MsgType string

const (
	MsgTypePingRequest         MsgType = "ping_request"
	MsgTypePingResponse        MsgType = "ping_response"
	MsgTypeSceneJoinRequest    MsgType = "scene_join_request"
	MsgTypeSceneJoinResponse   MsgType = "scene_join_response"
	MsgTypeRaycastRequest      MsgType = "raycast_request"
	MsgTypeRaycastResponse     MsgType = "raycast_response"
	MsgTypeNearestRequest      MsgType = "nearest_request"
	MsgTypeNearestResponse     MsgType = "nearest_response"
	MsgTypeOverlapRequest      MsgType = "overlap_request"
	MsgTypeOverlapResponse     MsgType = "overlap_response"
	MsgTypeLeafUpdateRequest   MsgType = "leaf_update_request"
	MsgTypeLeafUpdateResponse  MsgType = "leaf_update_response"
	MsgTypeLeafUpdateBroadcast MsgType = "leaf_update_broadcast"
	MsgTypeErrorResponse       MsgType = "error_response"
)

// Msg is the envelope of every message.
type Msg struct {
	Type      MsgType         `json:"type"`
	RequestID uint32          `json:"request_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// TypeString returns the message type as a string. Messages without type
// return "unknown".
func (m Msg) TypeString() string {
	if m.Type == "" {
		return "unknown"
	}
	return string(m.Type)
}

// DataTo decodes the message payload into v.
func (m Msg) DataTo(v any) error {
	if len(m.Data) == 0 {
		return nil
	}

	if err := json.Unmarshal(m.Data, v); err != nil {
		return errors.New("decoding message data failed").
			WithType(ErrTypeInvalidMsg).
			WithTag("msg_type", m.Type).
			Wrap(err)
	}
	return nil
}

// Payload is a message payload that knows its type.
type Payload interface {
	MsgType() MsgType
}

// MsgFromPayload wraps the payload into a message.
func MsgFromPayload(requestID uint32, p Payload) (Msg, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return Msg{}, errors.New("encoding message data failed").
			WithTag("msg_type", p.MsgType()).
			Wrap(err)
	}

	return Msg{
		Type:      p.MsgType(),
		RequestID: requestID,
		Timestamp: time.Now(),
		Data:      data,
	}, nil
}

// ResponseSender sends messages to a client.
type ResponseSender interface {
	// Sends the payload as a reply to the given request.
	Send(requestID uint32, p Payload)

	// Sends an encoded message.
	SendMsg(Msg)
}

// Sender sends a message and returns the number of bytes written.
type Sender func(Msg) (int, error)

// Receiver receives a message and returns the number of bytes read.
type Receiver func() (Msg, int, error)

// Send writes msg to the WebSocket connection as a text frame.
func Send(conn *websocket.Conn, msg Msg) (int, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return 0, errors.New("encoding message failed").
			WithTag("msg_type", msg.Type).
			Wrap(err)
	}

	if err := websocket.Message.Send(conn, string(b)); err != nil {
		return 0, err
	}
	return len(b), nil
}

// Receive reads the next message from the WebSocket connection.
func Receive(conn *websocket.Conn) (Msg, int, error) {
	var b []byte
	if err := websocket.Message.Receive(conn, &b); err != nil {
		return Msg{}, 0, err
	}

	var msg Msg
	if err := json.Unmarshal(b, &msg); err != nil {
		return Msg{}, len(b), errors.New("decoding message failed").
			WithType(ErrTypeInvalidMsg).
			Wrap(err)
	}
	return msg, len(b), nil
}
