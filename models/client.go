package models

import "github.com/aukilabs/kenaz/messages"

// Client is a realtime client that joined a scene.
type Client struct {
	ID        uint32
	Responder messages.ResponseSender
}
