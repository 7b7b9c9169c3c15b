package websocket

import (
	"context"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/spatial/featureflag"
	"github.com/aukilabs/spatial/messages"
	"github.com/aukilabs/spatial/models"
	"github.com/google/uuid"
	"golang.org/x/net/websocket"
)

const (
	// The header that identifies a client across connections. A random id is
	// generated when it is missing.
	ClientIDHeader = "X-Client-Id"

	// The name of the path wildcard that holds the id of the scene to join.
	SceneIDPathValue = "id"
)

const (
	ErrTypeSceneNotJoined = "scene_not_joined"
	ErrTypeEntityNotOwned = "entity_not_owned"
)

// RealtimeHandler represents a service that makes a client join a scene and
// relays its entity changes to the other participants in realtime.
type RealtimeHandler struct {
	// The time a client is idle before being disconnected.
	ClientIdleTimeout time.Duration

	// The store that contains all the server scenes.
	Scenes *models.SceneStore

	FeatureFlags featureflag.FeatureFlag

	conn               *websocket.Conn
	sceneID            string
	currentScene       *models.Scene
	currentParticipant *models.Participant

	clientID string
}

func (h *RealtimeHandler) HandleConnect(conn *websocket.Conn) {
	req := conn.Request()

	h.clientID = req.Header.Get(ClientIDHeader)
	if h.clientID == "" {
		h.clientID = uuid.NewString()
	}

	h.sceneID = req.PathValue(SceneIDPathValue)
	h.conn = conn
}

func (h *RealtimeHandler) HandleJoin(ctx context.Context, respond models.ResponseSender) error {
	id, err := models.ParseID(h.sceneID)
	if err != nil {
		return errors.New("invalid scene id").
			WithType(models.ErrTypeSceneNotFound).
			Wrap(err)
	}

	scene, err := h.Scenes.GetByID(id)
	if err != nil {
		return err
	}

	participant := &models.Participant{
		ID:        scene.NewParticipantID(),
		Responder: respond,
	}

	respond.Send(messages.SceneJoined{
		Header:        messages.Header{Type: messages.TypeSceneJoined},
		SceneID:       scene.ID,
		SceneUUID:     scene.SceneUUID,
		ParticipantID: participant.ID,
		Entities:      models.EntitiesToState(scene.Entities()),
	})

	scene.AddParticipant(participant)
	if scene.Closed() {
		scene.RemoveParticipant(participant)
		return errors.New("scene is deleted").
			WithType(models.ErrTypeSceneNotFound).
			WithTag("scene_id", scene.ID)
	}

	h.currentScene = scene
	h.currentParticipant = participant

	h.FeatureFlags.IfNotSet(featureflag.FlagDisableParticipantJoinBroadcast, func() {
		scene.Broadcast(participant, messages.ParticipantJoined{
			Header:        messages.Header{Type: messages.TypeParticipantJoined},
			ParticipantID: participant.ID,
		})
	})

	return nil
}

func (h *RealtimeHandler) HandleDisconnect(_ error) {
	if h.currentParticipant != nil {
		h.leaveScene()
	}
}

func (h *RealtimeHandler) HandlePing(ctx context.Context, respond models.ResponseSender, msg messages.Msg) error {
	respond.Send(messages.NewPong(msg.RequestID))
	return nil
}

func (h *RealtimeHandler) HandleEntityAdd(ctx context.Context, respond models.ResponseSender, msg messages.Msg) error {
	var req messages.EntityAdd
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	scene, participant, err := h.joined(msg)
	if err != nil {
		return err
	}

	entity := &models.Entity{
		ParticipantID: participant.ID,
		Persist:       req.Persist,
		Radius:        req.Radius,
	}
	entity.SetPose(req.Pose)

	if err := scene.CreateEntity(entity); err != nil {
		return err
	}
	participant.AddEntity(entity)

	respond.Send(messages.EntityAddResponse{
		Header:   messages.Header{Type: messages.TypeEntityAddResponse, RequestID: req.RequestID},
		EntityID: entity.ID,
	})

	h.FeatureFlags.IfNotSet(featureflag.FlagDisableEntityAddBroadcast, func() {
		scene.Broadcast(participant, messages.EntityAdded{
			Header: messages.Header{Type: messages.TypeEntityAdded},
			Entity: entity.ToState(),
		})
	})

	return nil
}

// HandleEntityUpdatePose moves an entity owned by the participant. Updates are
// acknowledged only when they carry a request id.
func (h *RealtimeHandler) HandleEntityUpdatePose(ctx context.Context, respond models.ResponseSender, msg messages.Msg) error {
	var req messages.EntityUpdatePose
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	scene, participant, err := h.joined(msg)
	if err != nil {
		return err
	}

	if _, err := h.ownedEntity(scene, participant, req.EntityID); err != nil {
		return err
	}

	entity, err := scene.SetEntityPose(req.EntityID, req.Pose)
	if err != nil {
		return err
	}

	if req.RequestID != 0 {
		respond.Send(messages.EntityUpdatePoseResponse{
			Header:   messages.Header{Type: messages.TypeEntityUpdatePoseResponse, RequestID: req.RequestID},
			EntityID: entity.ID,
		})
	}

	h.FeatureFlags.IfNotSet(featureflag.FlagDisableEntityUpdatePoseBroadcast, func() {
		scene.Broadcast(participant, messages.EntityPoseUpdated{
			Header:   messages.Header{Type: messages.TypeEntityPoseUpdated},
			EntityID: entity.ID,
			Pose:     entity.Pose(),
		})
	})

	return nil
}

func (h *RealtimeHandler) HandleEntityDelete(ctx context.Context, respond models.ResponseSender, msg messages.Msg) error {
	var req messages.EntityDelete
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	scene, participant, err := h.joined(msg)
	if err != nil {
		return err
	}

	if _, err := h.ownedEntity(scene, participant, req.EntityID); err != nil {
		return err
	}

	entity, err := scene.RemoveEntity(req.EntityID)
	if err != nil {
		return err
	}
	participant.RemoveEntity(entity)

	respond.Send(messages.EntityDeleteResponse{
		Header:   messages.Header{Type: messages.TypeEntityDeleteResponse, RequestID: req.RequestID},
		EntityID: entity.ID,
	})

	h.FeatureFlags.IfNotSet(featureflag.FlagDisableEntityDeleteBroadcast, func() {
		scene.Broadcast(participant, messages.EntityDeleted{
			Header:   messages.Header{Type: messages.TypeEntityDeleted},
			EntityID: entity.ID,
		})
	})

	return nil
}

func (h *RealtimeHandler) HandleQuery(ctx context.Context, respond models.ResponseSender, msg messages.Msg) error {
	var req messages.Query
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	scene, _, err := h.joined(msg)
	if err != nil {
		return err
	}

	entities, err := scene.Query(req.Query)
	if err != nil {
		return err
	}

	respond.Send(messages.QueryResponse{
		Header:   messages.Header{Type: messages.TypeQueryResponse, RequestID: req.RequestID},
		Entities: models.EntitiesToState(entities),
	})
	return nil
}

func (h *RealtimeHandler) Receiver() Receiver {
	return func() (messages.Msg, int, error) {
		var data []byte
		if err := websocket.Message.Receive(h.conn, &data); err != nil {
			return messages.Msg{}, 0, err
		}

		msg, err := messages.Decode(data)
		return msg, len(data), err
	}
}

func (h *RealtimeHandler) Sender() Sender {
	return func(msg any) (int, error) {
		data, err := messages.Encode(msg)
		if err != nil {
			return 0, err
		}

		if err := websocket.Message.Send(h.conn, string(data)); err != nil {
			return 0, err
		}
		return len(data), nil
	}
}

func (h *RealtimeHandler) Close() {
}

func (h *RealtimeHandler) IdleTimeout() time.Duration {
	return h.ClientIdleTimeout
}

func (h *RealtimeHandler) CurrentScene() *models.Scene {
	return h.currentScene
}

func (h *RealtimeHandler) CurrentParticipant() *models.Participant {
	return h.currentParticipant
}

func (h *RealtimeHandler) GetClientID() string {
	return h.clientID
}

func (h *RealtimeHandler) joined(msg messages.Msg) (*models.Scene, *models.Participant, error) {
	if h.currentScene == nil || h.currentParticipant == nil {
		return nil, nil, errors.New("scene not joined").
			WithType(ErrTypeSceneNotJoined).
			WithTag("msg_type", msg.Type)
	}

	if h.currentScene.Closed() {
		return nil, nil, errors.New("scene is deleted").
			WithType(models.ErrTypeSceneNotFound).
			WithTag("scene_id", h.currentScene.ID).
			WithTag("msg_type", msg.Type)
	}
	return h.currentScene, h.currentParticipant, nil
}

func (h *RealtimeHandler) ownedEntity(scene *models.Scene, participant *models.Participant, id uint32) (*models.Entity, error) {
	entity, ok := scene.EntityByID(id)
	if !ok {
		return nil, errors.New("entity not found").
			WithType(models.ErrTypeEntityNotFound).
			WithTag("scene_id", scene.ID).
			WithTag("entity_id", id)
	}

	if entity.ParticipantID != participant.ID {
		return nil, errors.New("entity is owned by another participant").
			WithType(ErrTypeEntityNotOwned).
			WithTag("scene_id", scene.ID).
			WithTag("entity_id", id).
			WithTag("participant_id", participant.ID)
	}
	return entity, nil
}

// leaveScene removes the participant and the entities it added that are not
// persisted.
func (h *RealtimeHandler) leaveScene() {
	scene := h.currentScene
	participant := h.currentParticipant

	if participant == nil || scene == nil {
		return
	}

	h.currentParticipant = nil
	h.currentScene = nil

	if scene.Closed() {
		scene.RemoveParticipant(participant)
		return
	}

	for _, id := range participant.EntityIDs() {
		entity, ok := scene.EntityByID(id)
		if !ok || entity.Persist || entity.ParticipantID != participant.ID {
			continue
		}

		if _, err := scene.RemoveEntity(id); err != nil {
			continue
		}
		participant.RemoveEntity(entity)

		h.FeatureFlags.IfNotSet(featureflag.FlagDisableEntityDeleteBroadcast, func() {
			scene.Broadcast(participant, messages.EntityDeleted{
				Header:   messages.Header{Type: messages.TypeEntityDeleted},
				EntityID: id,
			})
		})
	}

	scene.RemoveParticipant(participant)

	h.FeatureFlags.IfNotSet(featureflag.FlagDisableParticipantLeaveBroadcast, func() {
		scene.Broadcast(participant, messages.ParticipantLeft{
			Header:        messages.Header{Type: messages.TypeParticipantLeft},
			ParticipantID: participant.ID,
		})
	})
}
