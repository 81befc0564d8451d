// Package overlap answers overlap requests between scenes and moves scene
// triangles.
package overlap

import (
	"context"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/kenaz/featureflag"
	"github.com/aukilabs/kenaz/messages"
	"github.com/aukilabs/kenaz/models"
	"github.com/aukilabs/kenaz/modules"
)

type Module struct {
	FeatureFlags featureflag.FeatureFlag

	// The store used to find the scenes tested against the joined one.
	Scenes *models.SceneStore

	currentScene  *models.Scene
	currentClient *models.Client
	state         *State
}

func (m *Module) Name() string {
	return "overlap"
}

func (m *Module) Init(s *models.Scene, c *models.Client) {
	m.currentScene = s
	m.currentClient = c

	state, ok := s.ModuleState(m.Name())
	if !ok {
		state = &State{}
		s.SetModuleState(m.Name(), state)
	}
	m.state = state.(*State)
}

func (m *Module) HandleMsg(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error {
	var err error

	switch msg.Type {
	case messages.MsgTypeOverlapRequest:
		err = m.handleOverlap(ctx, respond, msg)

	case messages.MsgTypeLeafUpdateRequest:
		err = m.handleLeafUpdate(ctx, respond, msg)

	default:
		err = messages.ErrMsgSkip(msg)
	}

	return err
}

func (m *Module) HandleDisconnect() {
	m.currentScene = nil
	m.currentClient = nil
	m.state = nil
}

func (m *Module) handleOverlap(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error {
	scene := m.currentScene
	if scene == nil {
		return messages.ErrSceneNotJoined(msg)
	}

	var req messages.OverlapRequest
	if err := msg.DataTo(&req); err != nil {
		modules.SendError(respond, msg.RequestID, messages.ErrorCodeBadRequest, err)
		return nil
	}

	other := scene
	if req.OtherSceneID != 0 && req.OtherSceneID != scene.ID {
		var err error
		if other, err = m.Scenes.Find(req.OtherSceneID); err != nil {
			modules.SendError(respond, msg.RequestID, messages.ErrorCodeNotFound, err)
			return nil
		}
	}

	if other == scene && m.FeatureFlags.IsSet(featureflag.FlagDisableSelfOverlap) {
		modules.SendError(respond, msg.RequestID, messages.ErrorCodeForbidden,
			errors.New("self overlap is disabled"))
		return nil
	}

	boundsOnly := m.FeatureFlags.IsSet(featureflag.FlagBoundsOnlyOverlap)
	version := scene.Version()
	otherVersion := other.Version()

	pairs, ok := m.state.Pairs(version, other, otherVersion, boundsOnly)
	if !ok {
		pairs = scene.Overlap(other, boundsOnly)
		m.state.SetPairs(version, other, otherVersion, boundsOnly, pairs)
	}

	respond.Send(msg.RequestID, messages.OverlapResponse{Pairs: pairs})
	return nil
}

func (m *Module) handleLeafUpdate(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error {
	scene := m.currentScene
	if scene == nil {
		return messages.ErrSceneNotJoined(msg)
	}

	if m.FeatureFlags.IsSet(featureflag.FlagDisableLeafUpdate) {
		modules.SendError(respond, msg.RequestID, messages.ErrorCodeForbidden,
			errors.New("leaf update is disabled"))
		return nil
	}

	var req messages.LeafUpdateRequest
	if err := msg.DataTo(&req); err != nil {
		modules.SendError(respond, msg.RequestID, messages.ErrorCodeBadRequest, err)
		return nil
	}

	updated, err := scene.UpdateTriangles(req.Updates)
	if updated != 0 {
		m.FeatureFlags.IfNotSet(featureflag.FlagDisableLeafUpdateBroadcast, func() {
			scene.Broadcast(m.currentClient, messages.LeafUpdateBroadcast{
				ClientID: m.currentClient.ID,
				Updates:  req.Updates[:updated],
			})
		})
	}
	if err != nil {
		modules.SendError(respond, msg.RequestID, modules.ErrorCode(err), err)
		return nil
	}

	respond.Send(msg.RequestID, messages.LeafUpdateResponse{Updated: updated})
	return nil
}
