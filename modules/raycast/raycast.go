// Package raycast answers ray cast requests on the joined scene.
package raycast

import (
	"context"

	"github.com/aukilabs/kenaz/featureflag"
	"github.com/aukilabs/kenaz/messages"
	"github.com/aukilabs/kenaz/models"
	"github.com/aukilabs/kenaz/modules"
)

type Module struct {
	FeatureFlags featureflag.FeatureFlag

	currentScene *models.Scene
}

func (m *Module) Name() string {
	return "raycast"
}

func (m *Module) Init(s *models.Scene, _ *models.Client) {
	m.currentScene = s
}

func (m *Module) HandleMsg(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error {
	switch msg.Type {
	case messages.MsgTypeRaycastRequest:
		return m.handleRaycast(ctx, respond, msg)

	default:
		return messages.ErrMsgSkip(msg)
	}
}

func (m *Module) HandleDisconnect() {
	m.currentScene = nil
}

func (m *Module) handleRaycast(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error {
	scene := m.currentScene
	if scene == nil {
		return messages.ErrSceneNotJoined(msg)
	}

	var req messages.RaycastRequest
	if err := msg.DataTo(&req); err != nil {
		modules.SendError(respond, msg.RequestID, messages.ErrorCodeBadRequest, err)
		return nil
	}

	hit, err := scene.RayCast(req.Origin, req.Direction, m.FeatureFlags.IsSet(featureflag.FlagBoundsOnlyQueries))
	if err != nil {
		modules.SendError(respond, msg.RequestID, modules.ErrorCode(err), err)
		return nil
	}

	respond.Send(msg.RequestID, messages.RaycastResponse{Hit: hit})
	return nil
}
