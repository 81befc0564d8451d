package websocket

import (
	"context"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	kenazhttp "github.com/aukilabs/kenaz/http"
	"github.com/aukilabs/kenaz/messages"
	"github.com/aukilabs/kenaz/models"
	"github.com/aukilabs/kenaz/modules"
	"github.com/google/uuid"
	"golang.org/x/net/websocket"
)

// RealtimeHandler represents a service that answers the spatial queries of a
// client connection on the scene it joined.
type RealtimeHandler struct {
	// The time a client is idle before being disconnected.
	ClientIdleTimeout time.Duration

	// The store that contains all the server scenes.
	Scenes *models.SceneStore

	// The modules that answer the scene queries.
	Modules []modules.Module

	conn          *websocket.Conn
	currentScene  *models.Scene
	currentClient *models.Client

	clientID string
}

func (h *RealtimeHandler) HandleConnect(conn *websocket.Conn) {
	h.clientID = kenazhttp.GetClientID(conn.Request())
	if h.clientID == "" {
		h.clientID = uuid.NewString()
	}

	h.conn = conn
}

func (h *RealtimeHandler) HandlePing(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error {
	respond.Send(msg.RequestID, messages.PingResponse{
		ServerTime: time.Now(),
	})
	return nil
}

func (h *RealtimeHandler) HandleSceneJoin(ctx context.Context, respond messages.ResponseSender, msg messages.Msg) error {
	var req messages.SceneJoinRequest
	if err := msg.DataTo(&req); err != nil {
		modules.SendError(respond, msg.RequestID, messages.ErrorCodeBadRequest, err)
		return nil
	}

	if h.currentScene != nil && h.currentScene.ID == req.SceneID {
		modules.SendError(respond, msg.RequestID, messages.ErrorCodeAlreadyJoined,
			errors.New("scene already joined").WithTag("scene_id", req.SceneID))
		return nil
	}

	scene, err := h.Scenes.Find(req.SceneID)
	if err != nil {
		modules.SendError(respond, msg.RequestID, messages.ErrorCodeNotFound, err)
		return nil
	}

	if h.currentClient != nil {
		h.leaveScene()
	}

	client := &models.Client{
		ID:        scene.NewClientID(),
		Responder: respond,
	}
	scene.AddClient(client)

	h.currentScene = scene
	h.currentClient = client

	for _, m := range h.Modules {
		m.Init(scene, client)
	}

	respond.Send(msg.RequestID, messages.SceneJoinResponse{
		ClientID: client.ID,
		Scene:    scene.Info(),
	})
	return nil
}

func (h *RealtimeHandler) HandleDisconnect(_ error) {
	if h.currentClient != nil {
		h.leaveScene()
	}
}

func (h *RealtimeHandler) HandleWithModule(ctx context.Context, m modules.Module, respond messages.ResponseSender, msg messages.Msg) error {
	if h.CurrentClient() == nil || h.CurrentScene() == nil {
		return messages.ErrSceneNotJoined(msg)
	}

	err := m.HandleMsg(ctx, respond, msg)
	if err != nil && !errors.IsType(err, messages.ErrTypeMsgSkip) {
		return errors.New("handling message with module failed").
			WithTag("module", m.Name()).
			Wrap(err)
	}
	return err
}

func (h *RealtimeHandler) Receiver() messages.Receiver {
	return func() (messages.Msg, int, error) {
		return messages.Receive(h.conn)
	}
}

func (h *RealtimeHandler) Sender() messages.Sender {
	return func(msg messages.Msg) (int, error) {
		return messages.Send(h.conn, msg)
	}
}

func (h *RealtimeHandler) Close() {
}

func (h *RealtimeHandler) IdleTimeout() time.Duration {
	return h.ClientIdleTimeout
}

func (h *RealtimeHandler) GetScenes() *models.SceneStore {
	return h.Scenes
}

func (h *RealtimeHandler) GetModules() []modules.Module {
	return h.Modules
}

func (h *RealtimeHandler) CurrentScene() *models.Scene {
	return h.currentScene
}

func (h *RealtimeHandler) CurrentClient() *models.Client {
	return h.currentClient
}

func (h *RealtimeHandler) GetClientID() string {
	return h.clientID
}

func (h *RealtimeHandler) leaveScene() {
	scene := h.currentScene
	client := h.currentClient

	if client == nil || scene == nil {
		return
	}

	for _, m := range h.Modules {
		m.HandleDisconnect()
	}
	scene.RemoveClient(client)

	h.currentClient = nil
	h.currentScene = nil
}
