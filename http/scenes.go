package http

import (
	"net/http"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/spatial/featureflag"
	"github.com/aukilabs/spatial/messages"
	"github.com/aukilabs/spatial/models"
	"github.com/segmentio/encoding/json"
)

const (
	ErrTypeBadRequest = "bad_request"

	maxBodySize = 1 << 20
)

// SceneHandler serves the scenes and their entities over a JSON API. Entity
// changes are broadcasted to the participants streaming the scene.
type SceneHandler struct {
	Scenes       *models.SceneStore
	SceneConfig  models.SceneConfig
	FeatureFlags featureflag.FeatureFlag
}

// Register registers the scene routes on mux.
func (h *SceneHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /scenes", h.createScene)
	mux.HandleFunc("GET /scenes", h.listScenes)
	mux.HandleFunc("GET /scenes/{id}", h.getScene)
	mux.HandleFunc("DELETE /scenes/{id}", h.deleteScene)
	mux.HandleFunc("GET /scenes/{id}/stats", h.sceneStats)
	mux.HandleFunc("POST /scenes/{id}/clear", h.clearScene)
	mux.HandleFunc("POST /scenes/{id}/query", h.queryScene)
	mux.HandleFunc("POST /scenes/{id}/entities", h.addEntity)
	mux.HandleFunc("GET /scenes/{id}/entities", h.listEntities)
	mux.HandleFunc("GET /scenes/{id}/entities/{entityID}", h.getEntity)
	mux.HandleFunc("PUT /scenes/{id}/entities/{entityID}/pose", h.setEntityPose)
	mux.HandleFunc("DELETE /scenes/{id}/entities/{entityID}", h.deleteEntity)
}

func (h *SceneHandler) createScene(w http.ResponseWriter, r *http.Request) {
	id := h.Scenes.NewID()

	scene, err := models.NewScene(id, h.SceneConfig)
	if err != nil {
		h.Scenes.ReleaseID(id)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.Scenes.Add(r.Context(), scene)

	logs.WithTag("scene_id", scene.ID).
		WithTag("scene_uuid", scene.SceneUUID).
		Info("scene created")

	writeJSON(w, http.StatusCreated, scene.ToState())
}

func (h *SceneHandler) listScenes(w http.ResponseWriter, r *http.Request) {
	scenes := h.Scenes.Scenes()

	states := make([]models.SceneState, len(scenes))
	for i, s := range scenes {
		states[i] = s.ToState()
	}
	writeJSON(w, http.StatusOK, states)
}

func (h *SceneHandler) getScene(w http.ResponseWriter, r *http.Request) {
	scene, ok := h.scene(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, scene.ToState())
}

func (h *SceneHandler) deleteScene(w http.ResponseWriter, r *http.Request) {
	scene, ok := h.scene(w, r)
	if !ok {
		return
	}

	h.Scenes.Remove(r.Context(), scene)

	logs.WithTag("scene_id", scene.ID).
		WithTag("scene_uuid", scene.SceneUUID).
		Info("scene deleted")

	w.WriteHeader(http.StatusNoContent)
}

func (h *SceneHandler) sceneStats(w http.ResponseWriter, r *http.Request) {
	scene, ok := h.scene(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, scene.Stats())
}

type clearResponse struct {
	RemovedCount int `json:"removed_count"`
}

func (h *SceneHandler) clearScene(w http.ResponseWriter, r *http.Request) {
	scene, ok := h.scene(w, r)
	if !ok {
		return
	}

	removed := scene.Clear()
	h.broadcastClear(scene, removed)
	writeJSON(w, http.StatusOK, clearResponse{RemovedCount: removed})
}

type queryResponse struct {
	Entities []models.EntityState `json:"entities"`
}

func (h *SceneHandler) queryScene(w http.ResponseWriter, r *http.Request) {
	scene, ok := h.scene(w, r)
	if !ok {
		return
	}

	var q models.Query
	if !decodeJSON(w, r, &q) {
		return
	}

	entities, err := scene.Query(q)
	if err != nil {
		writeError(w, statusFromError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, queryResponse{Entities: models.EntitiesToState(entities)})
}

type addEntityRequest struct {
	Radius  float64     `json:"radius"`
	Pose    models.Pose `json:"pose"`
	Persist bool        `json:"persist"`
}

func (h *SceneHandler) addEntity(w http.ResponseWriter, r *http.Request) {
	scene, ok := h.scene(w, r)
	if !ok {
		return
	}

	var req addEntityRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	entity := &models.Entity{
		Persist: req.Persist,
		Radius:  req.Radius,
	}
	entity.SetPose(req.Pose)

	if err := scene.CreateEntity(entity); err != nil {
		writeError(w, statusFromError(err), err)
		return
	}

	state := entity.ToState()

	h.FeatureFlags.IfNotSet(featureflag.FlagDisableEntityAddBroadcast, func() {
		scene.Broadcast(nil, messages.EntityAdded{
			Header: messages.Header{Type: messages.TypeEntityAdded},
			Entity: state,
		})
	})

	writeJSON(w, http.StatusCreated, state)
}

func (h *SceneHandler) listEntities(w http.ResponseWriter, r *http.Request) {
	scene, ok := h.scene(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, models.EntitiesToState(scene.Entities()))
}

func (h *SceneHandler) getEntity(w http.ResponseWriter, r *http.Request) {
	scene, ok := h.scene(w, r)
	if !ok {
		return
	}

	id, err := models.ParseID(r.PathValue("entityID"))
	if err != nil {
		writeError(w, statusFromError(err), err)
		return
	}

	entity, found := scene.EntityByID(id)
	if !found {
		writeError(w, http.StatusNotFound, errors.New("entity not found").
			WithType(models.ErrTypeEntityNotFound).
			WithTag("scene_id", scene.ID).
			WithTag("entity_id", id))
		return
	}
	writeJSON(w, http.StatusOK, entity.ToState())
}

func (h *SceneHandler) setEntityPose(w http.ResponseWriter, r *http.Request) {
	scene, ok := h.scene(w, r)
	if !ok {
		return
	}

	id, err := models.ParseID(r.PathValue("entityID"))
	if err != nil {
		writeError(w, statusFromError(err), err)
		return
	}

	var pose models.Pose
	if !decodeJSON(w, r, &pose) {
		return
	}

	entity, err := scene.SetEntityPose(id, pose)
	if err != nil {
		writeError(w, statusFromError(err), err)
		return
	}

	h.FeatureFlags.IfNotSet(featureflag.FlagDisableEntityUpdatePoseBroadcast, func() {
		scene.Broadcast(nil, messages.EntityPoseUpdated{
			Header:   messages.Header{Type: messages.TypeEntityPoseUpdated},
			EntityID: entity.ID,
			Pose:     pose,
		})
	})

	writeJSON(w, http.StatusOK, entity.ToState())
}

func (h *SceneHandler) deleteEntity(w http.ResponseWriter, r *http.Request) {
	scene, ok := h.scene(w, r)
	if !ok {
		return
	}

	id, err := models.ParseID(r.PathValue("entityID"))
	if err != nil {
		writeError(w, statusFromError(err), err)
		return
	}

	if _, err := scene.RemoveEntity(id); err != nil {
		writeError(w, statusFromError(err), err)
		return
	}

	h.FeatureFlags.IfNotSet(featureflag.FlagDisableEntityDeleteBroadcast, func() {
		scene.Broadcast(nil, messages.EntityDeleted{
			Header:   messages.Header{Type: messages.TypeEntityDeleted},
			EntityID: id,
		})
	})

	w.WriteHeader(http.StatusNoContent)
}

// scene returns the scene targeted by the request. It writes an error
// response when the scene does not exist.
func (h *SceneHandler) scene(w http.ResponseWriter, r *http.Request) (*models.Scene, bool) {
	id, err := models.ParseID(r.PathValue("id"))
	if err != nil {
		writeError(w, statusFromError(err), err)
		return nil, false
	}

	scene, err := h.Scenes.GetByID(id)
	if err != nil {
		writeError(w, statusFromError(err), err)
		return nil, false
	}
	return scene, true
}

func (h *SceneHandler) broadcastClear(scene *models.Scene, removed int) {
	h.FeatureFlags.IfNotSet(featureflag.FlagDisableSceneClearBroadcast, func() {
		scene.Broadcast(nil, messages.SceneCleared{
			Header:       messages.Header{Type: messages.TypeSceneCleared},
			RemovedCount: removed,
		})
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("decoding request body failed").
			WithType(ErrTypeBadRequest).
			Wrap(err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logs.Warn(errors.New("writing response failed").Wrap(err))
	}
}

type errorResponse struct {
	ErrorType string `json:"error_type"`
	Message   string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		logs.Error(err)
	} else {
		logs.Debug(err)
	}

	errType := errors.Type(err)
	if errType == "" {
		errType = messages.ErrTypeInternal
	}

	writeJSON(w, status, errorResponse{
		ErrorType: errType,
		Message:   err.Error(),
	})
}

func statusFromError(err error) int {
	switch errors.Type(err) {
	case models.ErrTypeSceneNotFound,
		models.ErrTypeEntityNotFound:
		return http.StatusNotFound

	case models.ErrTypeInvalidID,
		models.ErrTypeInvalidEntity,
		models.ErrTypeInvalidQuery,
		ErrTypeBadRequest:
		return http.StatusBadRequest

	case models.ErrTypeEntityAlreadyAdded:
		return http.StatusConflict

	case ErrTypeUnauthorized:
		return http.StatusUnauthorized

	default:
		return http.StatusInternalServerError
	}
}
