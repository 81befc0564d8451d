package messages

import "github.com/aukilabs/go-tooling/pkg/errors"

const (
	// ErrTypeMsgSkip is the type of errors returned by modules that do not
	// handle a message.
	ErrTypeMsgSkip = "msg-skip"

	// ErrTypeSceneNotJoined is the type of errors returned when a scene
	// message is received before joining a scene.
	ErrTypeSceneNotJoined = "scene-not-joined"

	// ErrTypeSceneNotFound is the type of errors returned when a scene does
	// not exist.
	ErrTypeSceneNotFound = "scene-not-found"

	// ErrTypeInvalidMsg is the type of errors returned when a message can't be
	// decoded.
	ErrTypeInvalidMsg = "invalid-msg"
)

// ErrorCode is the code of an error response.
type ErrorCode string

const (
	ErrorCodeBadRequest     ErrorCode = "bad_request"
	ErrorCodeNotFound       ErrorCode = "not_found"
	ErrorCodeSceneNotJoined ErrorCode = "scene_not_joined"
	ErrorCodeAlreadyJoined  ErrorCode = "scene_already_joined"
	ErrorCodeForbidden      ErrorCode = "forbidden"
	ErrorCodeInternal       ErrorCode = "internal_server_error"
)

// ErrMsgSkip returns an error that indicates that a module skipped the
// given message.
func ErrMsgSkip(msg Msg) error {
	return errors.New("message skipped").
		WithType(ErrTypeMsgSkip).
		WithTag("msg_type", msg.Type)
}

// ErrSceneNotJoined returns an error that indicates that the given message
// requires a joined scene.
func ErrSceneNotJoined(msg Msg) error {
	return errors.New("scene not joined").
		WithType(ErrTypeSceneNotJoined).
		WithTag("msg_type", msg.Type)
}

// ErrorCodeFromType returns the error code that matches the type of err.
func ErrorCodeFromType(err error) ErrorCode {
	switch errors.Type(err) {
	case ErrTypeSceneNotFound:
		return ErrorCodeNotFound
	case ErrTypeSceneNotJoined:
		return ErrorCodeSceneNotJoined
	case ErrTypeInvalidMsg:
		return ErrorCodeBadRequest
	default:
		return ErrorCodeInternal
	}
}
