package messages

import "time"

// Vector is a 3D vector encoded as [x, y, z].
type Vector [3]float64

type PingRequest struct{}

func (PingRequest) MsgType() MsgType { return MsgTypePingRequest }

type PingResponse struct {
	ServerTime time.Time `json:"server_time"`
}

func (PingResponse) MsgType() MsgType { return MsgTypePingResponse }

type SceneJoinRequest struct {
	SceneID uint32 `json:"scene_id"`
}

func (SceneJoinRequest) MsgType() MsgType { return MsgTypeSceneJoinRequest }

// SceneInfo describes a loaded scene.
type SceneInfo struct {
	ID            uint32 `json:"id"`
	UUID          string `json:"uuid"`
	Name          string `json:"name"`
	FaceCount     int    `json:"face_count"`
	TriangleCount int    `json:"triangle_count"`
	TreeType      int    `json:"tree_type"`
	Axis          int    `json:"axis"`
	Depth         int    `json:"depth"`
	Min           Vector `json:"min"`
	Max           Vector `json:"max"`
}

type SceneJoinResponse struct {
	ClientID uint32    `json:"client_id"`
	Scene    SceneInfo `json:"scene"`
}

func (SceneJoinResponse) MsgType() MsgType { return MsgTypeSceneJoinResponse }

type RaycastRequest struct {
	Origin    Vector `json:"origin"`
	Direction Vector `json:"direction"`
}

func (RaycastRequest) MsgType() MsgType { return MsgTypeRaycastRequest }

// Hit is a triangle found by a ray cast or a nearest point search.
type Hit struct {
	Triangle int     `json:"triangle"`
	Face     int     `json:"face"`
	Point    Vector  `json:"point"`
	Normal   Vector  `json:"normal"`
	Distance float64 `json:"distance"`
}

type RaycastResponse struct {
	Hit *Hit `json:"hit,omitempty"`
}

func (RaycastResponse) MsgType() MsgType { return MsgTypeRaycastResponse }

type NearestRequest struct {
	Point       Vector  `json:"point"`
	MaxDistance float64 `json:"max_distance"`
}

func (NearestRequest) MsgType() MsgType { return MsgTypeNearestRequest }

type NearestResponse struct {
	Hit *Hit `json:"hit,omitempty"`
}

func (NearestResponse) MsgType() MsgType { return MsgTypeNearestResponse }

type OverlapRequest struct {
	// The scene tested against the joined one. 0 means the joined scene.
	OtherSceneID uint32 `json:"other_scene_id,omitempty"`
}

func (OverlapRequest) MsgType() MsgType { return MsgTypeOverlapRequest }

// OverlapPair is a pair of overlapping triangles.
type OverlapPair struct {
	A int `json:"a"`
	B int `json:"b"`
}

type OverlapResponse struct {
	Pairs []OverlapPair `json:"pairs"`
}

func (OverlapResponse) MsgType() MsgType { return MsgTypeOverlapResponse }

// TriangleUpdate moves the vertices of a triangle.
type TriangleUpdate struct {
	Triangle int       `json:"triangle"`
	Vertices [3]Vector `json:"vertices"`

	// Keeps the previous position in the triangle bounds.
	Swept bool `json:"swept,omitempty"`
}

type LeafUpdateRequest struct {
	Updates []TriangleUpdate `json:"updates"`
}

func (LeafUpdateRequest) MsgType() MsgType { return MsgTypeLeafUpdateRequest }

type LeafUpdateResponse struct {
	Updated int `json:"updated"`
}

func (LeafUpdateResponse) MsgType() MsgType { return MsgTypeLeafUpdateResponse }

// LeafUpdateBroadcast notifies the clients of a scene that another client
// moved triangles.
type LeafUpdateBroadcast struct {
	ClientID uint32           `json:"client_id"`
	Updates  []TriangleUpdate `json:"updates"`
}

func (LeafUpdateBroadcast) MsgType() MsgType { return MsgTypeLeafUpdateBroadcast }

type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message,omitempty"`
}

func (ErrorResponse) MsgType() MsgType { return MsgTypeErrorResponse }
