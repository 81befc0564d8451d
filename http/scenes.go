package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/kenaz/featureflag"
	"github.com/aukilabs/kenaz/messages"
	"github.com/aukilabs/kenaz/models"
	"github.com/aukilabs/kenaz/modules"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"
	"github.com/segmentio/encoding/json"
)

const maxBodySize = 1 << 20

var queryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "http_query_latency",
	Help: "The time to answer a scene query over HTTP.",
}, []string{"query"})

// SceneHandler serves the scenes over a REST API.
type SceneHandler struct {
	Scenes       *models.SceneStore
	FeatureFlags featureflag.FeatureFlag
}

// Register registers the scene routes on the given mux.
func (h *SceneHandler) Register(mux *http.ServeMux, wrap func(http.HandlerFunc) http.Handler) {
	mux.Handle("GET /scenes", wrap(h.HandleList))
	mux.Handle("GET /scenes/{id}", wrap(h.HandleGet))
	mux.Handle("DELETE /scenes/{id}", wrap(h.HandleDelete))
	mux.Handle("POST /scenes/{id}/raycast", wrap(h.HandleRaycast))
	mux.Handle("POST /scenes/{id}/nearest", wrap(h.HandleNearest))
	mux.Handle("POST /scenes/{id}/overlap", wrap(h.HandleOverlap))
}

func (h *SceneHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, lo.Map(h.Scenes.List(), func(s *models.Scene, _ int) messages.SceneInfo {
		return s.Info()
	}))
}

func (h *SceneHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	scene, ok := h.scene(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, scene.Info())
}

func (h *SceneHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	scene, ok := h.scene(w, r)
	if !ok {
		return
	}

	h.Scenes.Remove(scene.ID)
	logs.WithTag("scene_id", scene.ID).
		WithTag("scene_name", scene.Name).
		WithTag(logs.ClientIDTag, GetClientID(r)).
		Info("scene deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (h *SceneHandler) HandleRaycast(w http.ResponseWriter, r *http.Request) {
	defer measureQueryLatency("raycast")()

	scene, ok := h.scene(w, r)
	if !ok {
		return
	}

	var req messages.RaycastRequest
	if !decodeBody(w, r, &req) {
		return
	}

	hit, err := scene.RayCast(req.Origin, req.Direction, h.FeatureFlags.IsSet(featureflag.FlagBoundsOnlyQueries))
	if err != nil {
		WriteError(w, modules.ErrorCode(err), err)
		return
	}
	WriteJSON(w, http.StatusOK, messages.RaycastResponse{Hit: hit})
}

func (h *SceneHandler) HandleNearest(w http.ResponseWriter, r *http.Request) {
	defer measureQueryLatency("nearest")()

	scene, ok := h.scene(w, r)
	if !ok {
		return
	}

	var req messages.NearestRequest
	if !decodeBody(w, r, &req) {
		return
	}

	hit, err := scene.Nearest(req.Point, req.MaxDistance, h.FeatureFlags.IsSet(featureflag.FlagBoundsOnlyQueries))
	if err != nil {
		WriteError(w, modules.ErrorCode(err), err)
		return
	}
	WriteJSON(w, http.StatusOK, messages.NearestResponse{Hit: hit})
}

func (h *SceneHandler) HandleOverlap(w http.ResponseWriter, r *http.Request) {
	defer measureQueryLatency("overlap")()

	scene, ok := h.scene(w, r)
	if !ok {
		return
	}

	var req messages.OverlapRequest
	if !decodeBody(w, r, &req) {
		return
	}

	other := scene
	if req.OtherSceneID != 0 && req.OtherSceneID != scene.ID {
		var err error
		if other, err = h.Scenes.Find(req.OtherSceneID); err != nil {
			WriteError(w, messages.ErrorCodeNotFound, err)
			return
		}
	}

	if other == scene && h.FeatureFlags.IsSet(featureflag.FlagDisableSelfOverlap) {
		WriteError(w, messages.ErrorCodeForbidden, errors.New("self overlap is disabled"))
		return
	}

	pairs := scene.Overlap(other, h.FeatureFlags.IsSet(featureflag.FlagBoundsOnlyOverlap))
	WriteJSON(w, http.StatusOK, messages.OverlapResponse{Pairs: pairs})
}

func (h *SceneHandler) scene(w http.ResponseWriter, r *http.Request) (*models.Scene, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		WriteError(w, messages.ErrorCodeBadRequest, errors.New("invalid scene id").
			WithTag("scene_id", r.PathValue("id")).
			Wrap(err))
		return nil, false
	}

	scene, err := h.Scenes.Find(uint32(id))
	if err != nil {
		WriteError(w, messages.ErrorCodeNotFound, err)
		return nil, false
	}
	return scene, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, messages.ErrorCodeBadRequest, errors.New("decoding body failed").Wrap(err))
		return false
	}
	return true
}

func measureQueryLatency(query string) func() {
	start := time.Now()

	return func() {
		queryLatency.
			With(prometheus.Labels{"query": query}).
			Observe(time.Since(start).Seconds())
	}
}
