package models

import (
	"sort"
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/kenaz/messages"
	"github.com/samber/lo"
)

// SceneStore holds the scenes served by Kenaz.
type SceneStore struct {
	initOnce sync.Once
	mutex    sync.RWMutex
	scenes   map[uint32]*Scene
	ids      SequentialIDGenerator
}

func (s *SceneStore) init() {
	s.scenes = make(map[uint32]*Scene)
}

// NewID returns an id for a new scene.
func (s *SceneStore) NewID() uint32 {
	return s.ids.New()
}

// Add adds a scene. It returns an error when a scene with the same id or
// name is already stored.
func (s *SceneStore) Add(scene *Scene) error {
	s.initOnce.Do(s.init)
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.scenes[scene.ID]; ok {
		return errors.New("scene id already used").
			WithTag("scene_id", scene.ID)
	}

	if _, found := lo.Find(lo.Values(s.scenes), func(v *Scene) bool {
		return v.Name == scene.Name
	}); found {
		return errors.New("scene name already used").
			WithTag("scene_name", scene.Name)
	}

	s.scenes[scene.ID] = scene
	instrumentAddScene(scene)
	return nil
}

// Remove removes the scene with the given id and returns it.
func (s *SceneStore) Remove(id uint32) (*Scene, bool) {
	s.initOnce.Do(s.init)
	s.mutex.Lock()
	defer s.mutex.Unlock()

	scene, ok := s.scenes[id]
	if !ok {
		return nil, false
	}

	delete(s.scenes, id)
	s.ids.Reuse(id)
	instrumentRemoveScene(scene)
	return scene, true
}

// Get returns the scene with the given id.
func (s *SceneStore) Get(id uint32) (*Scene, bool) {
	s.initOnce.Do(s.init)
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	scene, ok := s.scenes[id]
	return scene, ok
}

// Find returns the scene with the given id or an error typed
// messages.ErrTypeSceneNotFound.
func (s *SceneStore) Find(id uint32) (*Scene, error) {
	scene, ok := s.Get(id)
	if !ok {
		return nil, errors.New("scene not found").
			WithType(messages.ErrTypeSceneNotFound).
			WithTag("scene_id", id)
	}
	return scene, nil
}

// List returns the scenes sorted by id.
func (s *SceneStore) List() []*Scene {
	s.initOnce.Do(s.init)
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	scenes := lo.Values(s.scenes)
	sort.Slice(scenes, func(i, j int) bool {
		return scenes[i].ID < scenes[j].ID
	})
	return scenes
}

func (s *SceneStore) Len() int {
	s.initOnce.Do(s.init)
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.scenes)
}
