package modules

import (
	"context"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/kenaz/bvh"
	"github.com/aukilabs/kenaz/messages"
	"github.com/aukilabs/kenaz/models"
)

// Module is the interface that describes a module that extends Kenaz
// capabilities.
type Module interface {
	// Returns the module name.
	Name() string

	// Initializes the module with the joined scene.
	Init(*models.Scene, *models.Client)

	// Handles a given message. Modules are free to decide whether they handle a
	// message.
	//
	// Returning an error typed messages.ErrTypeMsgSkip indicates that handling
	// a message was skipped.
	//
	// Any other returned errors causes the current WebSocket client to be
	// disconnected.
	HandleMsg(context.Context, messages.ResponseSender, messages.Msg) error

	// Handles a client disconnection or a scene leave.
	HandleDisconnect()
}

// SendError replies to a request with an error response.
func SendError(respond messages.ResponseSender, requestID uint32, code messages.ErrorCode, err error) {
	res := messages.ErrorResponse{Code: code}
	if err != nil {
		res.Message = err.Error()
	}
	respond.Send(requestID, res)
}

// ErrorCode returns the error response code matching the type of err.
func ErrorCode(err error) messages.ErrorCode {
	switch errors.Type(err) {
	case models.ErrTypeInvalidQuery,
		bvh.ErrTypeIndexOutOfRange,
		bvh.ErrTypeDifferentNumPoints:
		return messages.ErrorCodeBadRequest
	default:
		return messages.ErrorCodeFromType(err)
	}
}
