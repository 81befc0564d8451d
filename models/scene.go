package models

import (
	"fmt"
	"math"
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/kenaz/bvh"
	"github.com/aukilabs/kenaz/mesh"
	"github.com/aukilabs/kenaz/messages"
	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// ErrTypeInvalidQuery is the type of errors returned when a query has
// invalid parameters.
const ErrTypeInvalidQuery = "invalid-query"

// Scene is a triangle mesh indexed in a bounding volume hierarchy, shared
// by the clients that joined it.
type Scene struct {
	ID   uint32
	UUID string
	Name string

	mutex   sync.RWMutex
	mesh    *mesh.Mesh
	tree    *mesh.Tree
	version uint64

	moduleStates map[string]any
	moduleMutex  sync.RWMutex

	clientIDs   SequentialIDGenerator
	clientMutex sync.RWMutex
	clients     map[uint32]*Client
}

// NewScene indexes the given mesh.
func NewScene(id uint32, name string, m *mesh.Mesh, opts mesh.TreeOptions) *Scene {
	return &Scene{
		ID:           id,
		UUID:         uuid.NewString(),
		Name:         name,
		mesh:         m,
		tree:         m.BuildTree(opts),
		clients:      make(map[uint32]*Client),
		moduleStates: make(map[string]any),
	}
}

// LoadScene reads the mesh file at the given path and indexes it.
func LoadScene(id uint32, name, path string, opts mesh.TreeOptions) (*Scene, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	obj, err := mesh.ReadFile(path)
	if err != nil {
		return nil, errors.New("loading scene failed").
			WithType(errors.Type(err)).
			WithTag("scene_name", name).
			Wrap(err)
	}

	s := NewScene(id, name, mesh.FromOBJ(obj), opts)
	logs.WithTag("scene_id", s.ID).
		WithTag("scene_name", s.Name).
		WithTag("path", path).
		WithTag("faces", s.mesh.FaceCount).
		WithTag("triangles", len(s.mesh.Triangles)).
		Info("scene loaded")
	return s, nil
}

// TriangleCount returns the number of indexed triangles.
func (s *Scene) TriangleCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.mesh.Triangles)
}

// Info describes the scene.
func (s *Scene) Info() messages.SceneInfo {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	info := messages.SceneInfo{
		ID:            s.ID,
		UUID:          s.UUID,
		Name:          s.Name,
		FaceCount:     s.mesh.FaceCount,
		TriangleCount: len(s.mesh.Triangles),
		TreeType:      s.tree.TreeType(),
		Axis:          s.tree.Axis(),
		Depth:         s.tree.Depth(),
	}

	if lower, upper, ok := s.tree.MinMaxBounds(); ok {
		info.Min = messages.Vector(lower)
		info.Max = messages.Vector(upper)
	}
	return info
}

// RayCast returns the closest triangle hit by a ray. When boundsOnly is true,
// the hit is reported on the triangle leaf bounds.
func (s *Scene) RayCast(origin, dir messages.Vector, boundsOnly bool) (*messages.Hit, error) {
	if err := checkVector("origin", origin); err != nil {
		return nil, err
	}
	if err := checkVector("direction", dir); err != nil {
		return nil, err
	}
	if dir == (messages.Vector{}) {
		return nil, errors.New("zero ray direction").WithType(ErrTypeInvalidQuery)
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var hit bvh.RayHit[float64, int]
	var ok bool
	if boundsOnly {
		hit, ok = s.tree.RayCastBounds(bvh.Vec3[float64](origin), bvh.Vec3[float64](dir))
	} else {
		hit, ok = s.mesh.RayCast(s.tree, toR3(origin), toR3(dir))
	}
	if !ok {
		return nil, nil
	}

	return &messages.Hit{
		Triangle: hit.Elem,
		Face:     s.mesh.Triangles[hit.Elem].Face,
		Point:    messages.Vector(hit.Point),
		Normal:   messages.Vector(hit.Normal),
		Distance: hit.Dist,
	}, nil
}

// Nearest returns the triangle closest to a point within maxDist. A zero
// maxDist does not limit the search. When boundsOnly is true, distances are
// measured to the triangle leaf bounds.
func (s *Scene) Nearest(point messages.Vector, maxDist float64, boundsOnly bool) (*messages.Hit, error) {
	if err := checkVector("point", point); err != nil {
		return nil, err
	}
	if maxDist < 0 || math.IsNaN(maxDist) {
		return nil, errors.New("invalid max distance").
			WithType(ErrTypeInvalidQuery).
			WithTag("max_distance", maxDist)
	}
	if maxDist == 0 {
		maxDist = math.Inf(1)
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var nearest bvh.Nearest[float64, int]
	var ok bool
	if boundsOnly {
		nearest, ok = s.tree.FindNearestBounds(bvh.Vec3[float64](point), maxDist*maxDist)
	} else {
		nearest, ok = s.mesh.Nearest(s.tree, toR3(point), maxDist)
	}
	if !ok {
		return nil, nil
	}

	return &messages.Hit{
		Triangle: nearest.Elem,
		Face:     s.mesh.Triangles[nearest.Elem].Face,
		Point:    messages.Vector(nearest.Point),
		Normal:   messages.Vector(nearest.Normal),
		Distance: math.Sqrt(nearest.DistSq),
	}, nil
}

// Overlap returns the pairs of triangles of s and other that intersect.
// When boundsOnly is true, pairs whose leaf bounds overlap are returned.
// When other is s, each pair of distinct triangles is reported once.
func (s *Scene) Overlap(other *Scene, boundsOnly bool) []messages.OverlapPair {
	unlock := lockScenes(s, other)
	defer unlock()

	overlaps := s.mesh.Overlap(s.tree, other.mesh, other.tree, !boundsOnly)
	if len(overlaps) == 0 {
		// Encoded as an empty array rather than null.
		return []messages.OverlapPair{}
	}
	return lo.Map(overlaps, func(o bvh.Overlap[int], _ int) messages.OverlapPair {
		return messages.OverlapPair{A: o.A, B: o.B}
	})
}

// lockScenes read locks the given scenes by id order.
func lockScenes(a, b *Scene) (unlock func()) {
	if a == b {
		a.mutex.RLock()
		return a.mutex.RUnlock
	}

	first, second := a, b
	if second.ID < first.ID {
		first, second = second, first
	}

	first.mutex.RLock()
	second.mutex.RLock()
	return func() {
		second.mutex.RUnlock()
		first.mutex.RUnlock()
	}
}

// UpdateTriangles moves triangle vertices and refits the hierarchy. It
// returns the number of updated triangles. Updates applied before an error
// are kept.
func (s *Scene) UpdateTriangles(updates []messages.TriangleUpdate) (int, error) {
	for _, u := range updates {
		for _, v := range u.Vertices {
			if err := checkVector("vertex", v); err != nil {
				return 0, err
			}
		}
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	var updated int
	defer func() {
		if updated != 0 {
			s.tree.UpdateTree()
			s.version++
		}
	}()

	for _, u := range updates {
		to := [3]r3.Vector{toR3(u.Vertices[0]), toR3(u.Vertices[1]), toR3(u.Vertices[2])}
		if err := s.mesh.MoveTriangle(s.tree, u.Triangle, to, u.Swept); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

// Version returns the number of times the scene geometry changed.
func (s *Scene) Version() uint64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.version
}

func (s *Scene) SetModuleState(moduleName string, state any) {
	s.moduleMutex.Lock()
	defer s.moduleMutex.Unlock()

	s.moduleStates[moduleName] = state
}

func (s *Scene) ModuleState(moduleName string) (any, bool) {
	s.moduleMutex.RLock()
	defer s.moduleMutex.RUnlock()

	state, ok := s.moduleStates[moduleName]
	return state, ok
}

// NewClientID returns an id for a client joining the scene.
func (s *Scene) NewClientID() uint32 {
	return s.clientIDs.New()
}

func (s *Scene) AddClient(c *Client) {
	s.clientMutex.Lock()
	defer s.clientMutex.Unlock()

	s.clients[c.ID] = c
}

func (s *Scene) RemoveClient(c *Client) {
	s.clientMutex.Lock()
	defer s.clientMutex.Unlock()

	delete(s.clients, c.ID)
	s.clientIDs.Reuse(c.ID)
}

func (s *Scene) ClientCount() int {
	s.clientMutex.RLock()
	defer s.clientMutex.RUnlock()

	return len(s.clients)
}

// Broadcast sends the payload to every client of the scene except sender.
func (s *Scene) Broadcast(sender *Client, p messages.Payload) {
	s.clientMutex.RLock()
	defer s.clientMutex.RUnlock()

	msg, err := messages.MsgFromPayload(0, p)
	if err != nil {
		logs.WithTag("message", p).Debug(err)
		return
	}

	for _, c := range s.clients {
		if c == sender {
			continue
		}
		c.Responder.SendMsg(msg)
	}
}

func checkVector(name string, v messages.Vector) error {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return errors.New("invalid vector").
				WithType(ErrTypeInvalidQuery).
				WithTag("name", name).
				WithTag("vector", fmt.Sprint(v))
		}
	}
	return nil
}

func toR3(v messages.Vector) r3.Vector {
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}
