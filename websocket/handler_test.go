package websocket

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/aukilabs/kenaz/mesh"
	"github.com/aukilabs/kenaz/messages"
	"github.com/aukilabs/kenaz/models"
	"github.com/aukilabs/kenaz/modules"
	"github.com/aukilabs/kenaz/modules/nearest"
	"github.com/aukilabs/kenaz/modules/overlap"
	"github.com/aukilabs/kenaz/modules/raycast"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func newTestSceneStore(t *testing.T, names ...string) *models.SceneStore {
	var store models.SceneStore
	for _, name := range names {
		s, err := models.LoadScene(
			store.NewID(),
			name,
			filepath.Join("..", "mesh", "testdata", "cube.obj"),
			mesh.DefaultTreeOptions(),
		)
		require.NoError(t, err)
		require.NoError(t, store.Add(s))
	}
	return &store
}

func newQueryModules(scenes *models.SceneStore) []func() modules.Module {
	return []func() modules.Module{
		func() modules.Module { return &raycast.Module{} },
		func() modules.Module { return &nearest.Module{} },
		func() modules.Module { return &overlap.Module{Scenes: scenes} },
	}
}

func joinScene(t *testing.T, conn *websocket.Conn, sceneID uint32) messages.SceneJoinResponse {
	sendPayload(t, conn, 1, messages.SceneJoinRequest{SceneID: sceneID})

	msg := receiveMsg(t, conn, messages.MsgTypeSceneJoinResponse)
	require.Equal(t, uint32(1), msg.RequestID)

	var res messages.SceneJoinResponse
	require.NoError(t, msg.DataTo(&res))
	return res
}

func requireErrorCode(t *testing.T, conn *websocket.Conn, requestID uint32, code messages.ErrorCode) {
	msg := receiveMsg(t, conn, messages.MsgTypeErrorResponse)
	require.Equal(t, requestID, msg.RequestID)

	var res messages.ErrorResponse
	require.NoError(t, msg.DataTo(&res))
	require.Equal(t, code, res.Code)
}

func TestHandlerHandlePing(t *testing.T) {
	clientA, _, close := NewTestingEnv(t, newTestHandler(newTestSceneStore(t)))
	defer close()

	sendPayload(t, clientA, 1, messages.PingRequest{})

	msg := receiveMsg(t, clientA, messages.MsgTypePingResponse)
	require.Equal(t, uint32(1), msg.RequestID)

	var res messages.PingResponse
	require.NoError(t, msg.DataTo(&res))
	require.NotZero(t, res.ServerTime)
}

func TestHandlerHandleSceneJoin(t *testing.T) {
	t.Run("scene is joined", func(t *testing.T) {
		scenes := newTestSceneStore(t, "cube")
		clientA, clientB, close := NewTestingEnv(t, newTestHandler(scenes))
		defer close()

		resA := joinScene(t, clientA, 1)
		require.Equal(t, uint32(1), resA.ClientID)
		require.Equal(t, "cube", resA.Scene.Name)
		require.Equal(t, 12, resA.Scene.TriangleCount)

		resB := joinScene(t, clientB, 1)
		require.Equal(t, uint32(2), resB.ClientID)

		scene, ok := scenes.Get(1)
		require.True(t, ok)
		require.Equal(t, 2, scene.ClientCount())
	})

	t.Run("scene is not found", func(t *testing.T) {
		clientA, _, close := NewTestingEnv(t, newTestHandler(newTestSceneStore(t, "cube")))
		defer close()

		sendPayload(t, clientA, 4, messages.SceneJoinRequest{SceneID: 42})
		requireErrorCode(t, clientA, 4, messages.ErrorCodeNotFound)
	})

	t.Run("scene is already joined", func(t *testing.T) {
		clientA, _, close := NewTestingEnv(t, newTestHandler(newTestSceneStore(t, "cube")))
		defer close()

		joinScene(t, clientA, 1)

		sendPayload(t, clientA, 2, messages.SceneJoinRequest{SceneID: 1})
		requireErrorCode(t, clientA, 2, messages.ErrorCodeAlreadyJoined)
	})

	t.Run("joining another scene leaves the current one", func(t *testing.T) {
		scenes := newTestSceneStore(t, "a", "b")
		clientA, _, close := NewTestingEnv(t, newTestHandler(scenes))
		defer close()

		joinScene(t, clientA, 1)
		res := joinScene(t, clientA, 2)
		require.Equal(t, "b", res.Scene.Name)

		a, _ := scenes.Get(1)
		b, _ := scenes.Get(2)
		require.Zero(t, a.ClientCount())
		require.Equal(t, 1, b.ClientCount())
	})
}

func TestHandlerSceneNotJoined(t *testing.T) {
	scenes := newTestSceneStore(t, "cube")
	clientA, _, close := NewTestingEnv(t, newTestHandler(scenes, newQueryModules(scenes)...))
	defer close()

	sendPayload(t, clientA, 9, messages.RaycastRequest{
		Origin:    messages.Vector{0, 0, 5},
		Direction: messages.Vector{0, 0, -1},
	})
	requireErrorCode(t, clientA, 9, messages.ErrorCodeSceneNotJoined)
}

func TestHandlerUnsupportedMsg(t *testing.T) {
	scenes := newTestSceneStore(t, "cube")
	clientA, _, close := NewTestingEnv(t, newTestHandler(scenes, newQueryModules(scenes)...))
	defer close()

	joinScene(t, clientA, 1)

	_, err := messages.Send(clientA, messages.Msg{Type: "teleport_request", RequestID: 3})
	require.NoError(t, err)
	requireErrorCode(t, clientA, 3, messages.ErrorCodeBadRequest)
}

func TestHandlerInvalidMsg(t *testing.T) {
	clientA, _, close := NewTestingEnv(t, newTestHandler(newTestSceneStore(t)))
	defer close()

	err := websocket.Message.Send(clientA, "{not json")
	require.NoError(t, err)
	requireErrorCode(t, clientA, 0, messages.ErrorCodeBadRequest)

	// The connection is still usable.
	sendPayload(t, clientA, 2, messages.PingRequest{})
	receiveMsg(t, clientA, messages.MsgTypePingResponse)
}

func TestHandlerQueries(t *testing.T) {
	scenes := newTestSceneStore(t, "cube")
	clientA, _, close := NewTestingEnv(t, newTestHandler(scenes, newQueryModules(scenes)...))
	defer close()

	joinScene(t, clientA, 1)

	t.Run("raycast", func(t *testing.T) {
		sendPayload(t, clientA, 10, messages.RaycastRequest{
			Origin:    messages.Vector{0.1, 0.2, 5},
			Direction: messages.Vector{0, 0, -1},
		})

		msg := receiveMsg(t, clientA, messages.MsgTypeRaycastResponse)
		require.Equal(t, uint32(10), msg.RequestID)

		var res messages.RaycastResponse
		require.NoError(t, msg.DataTo(&res))
		require.NotNil(t, res.Hit)
		require.InDelta(t, 4.5, res.Hit.Distance, 1e-9)
	})

	t.Run("nearest", func(t *testing.T) {
		sendPayload(t, clientA, 11, messages.NearestRequest{
			Point: messages.Vector{2, 0.2, 0.1},
		})

		msg := receiveMsg(t, clientA, messages.MsgTypeNearestResponse)
		require.Equal(t, uint32(11), msg.RequestID)

		var res messages.NearestResponse
		require.NoError(t, msg.DataTo(&res))
		require.NotNil(t, res.Hit)
		require.Equal(t, 2, res.Hit.Face)
		require.InDelta(t, 1.5, res.Hit.Distance, 1e-9)
	})

	t.Run("overlap", func(t *testing.T) {
		sendPayload(t, clientA, 12, messages.OverlapRequest{})

		msg := receiveMsg(t, clientA, messages.MsgTypeOverlapResponse)
		require.Equal(t, uint32(12), msg.RequestID)

		var res messages.OverlapResponse
		require.NoError(t, msg.DataTo(&res))
		require.Contains(t, res.Pairs, messages.OverlapPair{A: 0, B: 1})
	})
}

func TestHandlerLeafUpdateBroadcast(t *testing.T) {
	scenes := newTestSceneStore(t, "cube")
	clientA, clientB, close := NewTestingEnv(t, newTestHandler(scenes, newQueryModules(scenes)...))
	defer close()

	resA := joinScene(t, clientA, 1)
	joinScene(t, clientB, 1)

	update := messages.TriangleUpdate{
		Triangle: 0,
		Vertices: [3]messages.Vector{
			{-0.5, -0.5, 10.5},
			{0.5, -0.5, 10.5},
			{0.5, 0.5, 10.5},
		},
	}
	sendPayload(t, clientA, 20, messages.LeafUpdateRequest{
		Updates: []messages.TriangleUpdate{update},
	})

	msg := receiveMsg(t, clientA, messages.MsgTypeLeafUpdateResponse)
	require.Equal(t, uint32(20), msg.RequestID)

	var res messages.LeafUpdateResponse
	require.NoError(t, msg.DataTo(&res))
	require.Equal(t, 1, res.Updated)

	msg = receiveMsg(t, clientB, messages.MsgTypeLeafUpdateBroadcast)

	var broadcast messages.LeafUpdateBroadcast
	require.NoError(t, msg.DataTo(&broadcast))
	require.Equal(t, resA.ClientID, broadcast.ClientID)
	require.Equal(t, []messages.TriangleUpdate{update}, broadcast.Updates)

	sendPayload(t, clientB, 21, messages.RaycastRequest{
		Origin:    messages.Vector{0.25, -0.25, 20},
		Direction: messages.Vector{0, 0, -1},
	})

	msg = receiveMsg(t, clientB, messages.MsgTypeRaycastResponse)

	var hit messages.RaycastResponse
	require.NoError(t, msg.DataTo(&hit))
	require.NotNil(t, hit.Hit)
	require.InDelta(t, 9.5, hit.Hit.Distance, 1e-9)
}

func TestHandlerDisconnect(t *testing.T) {
	scenes := newTestSceneStore(t, "cube")
	clientA, clientB, close := NewTestingEnv(t, newTestHandler(scenes, newQueryModules(scenes)...))
	defer close()

	joinScene(t, clientA, 1)
	joinScene(t, clientB, 1)

	scene, _ := scenes.Get(1)
	require.Equal(t, 2, scene.ClientCount())

	clientA.Close()
	require.Eventually(t, func() bool {
		return scene.ClientCount() == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestHandlerIdleTimeout(t *testing.T) {
	scenes := newTestSceneStore(t, "cube")
	clientA, _, close := NewTestingEnv(t, func() Handler {
		return &RealtimeHandler{
			ClientIdleTimeout: 50 * time.Millisecond,
			Scenes:            scenes,
		}
	})
	defer close()

	joinScene(t, clientA, 1)

	scene, _ := scenes.Get(1)
	require.Eventually(t, func() bool {
		return scene.ClientCount() == 0
	}, 5*time.Second, 10*time.Millisecond)

	clientA.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := messages.Receive(clientA)
	require.Error(t, err)
}
