// Package nearest answers nearest point requests on the joined scene.
package nearest

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
	return "nearest"
}

func (m *Module) Init(s *models.Scene, _ *models.Client) {
	m.currentScene = s
}

func (m *Module) HandleMsg(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error {
	if msg.Type != messages.MsgTypeNearestRequest {
		return messages.ErrMsgSkip(msg)
	}

	scene := m.currentScene
	if scene == nil {
		return messages.ErrSceneNotJoined(msg)
	}

	var req messages.NearestRequest
	if err := msg.DataTo(&req); err != nil {
		modules.SendError(respond, msg.RequestID, messages.ErrorCodeBadRequest, err)
		return nil
	}

	hit, err := scene.Nearest(req.Point, req.MaxDistance, m.FeatureFlags.IsSet(featureflag.FlagBoundsOnlyQueries))
	if err != nil {
		modules.SendError(respond, msg.RequestID, modules.ErrorCode(err), err)
		return nil
	}

	respond.Send(msg.RequestID, messages.NearestResponse{Hit: hit})
	return nil
}

func (m *Module) HandleDisconnect() {
	m.currentScene = nil
}
