// Package messages defines the JSON messages exchanged with realtime clients.
package messages

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/spatial/models"
	"github.com/segmentio/encoding/json"
)

const (
	ErrTypeMsgInvalid     = "invalid_msg"
	ErrTypeMsgTypeUnknown = "unknown_msg_type"
	ErrTypeInternal       = "internal"
)

type Type string

const (
	TypeError Type = "error"
	TypePing  Type = "ping"
	TypePong  Type = "pong"

	TypeSceneJoined       Type = "scene_joined"
	TypeSceneCleared      Type = "scene_cleared"
	TypeParticipantJoined Type = "participant_joined"
	TypeParticipantLeft   Type = "participant_left"

	TypeEntityAdd                Type = "entity_add"
	TypeEntityAddResponse        Type = "entity_add_response"
	TypeEntityAdded              Type = "entity_added"
	TypeEntityUpdatePose         Type = "entity_update_pose"
	TypeEntityUpdatePoseResponse Type = "entity_update_pose_response"
	TypeEntityPoseUpdated        Type = "entity_pose_updated"
	TypeEntityDelete             Type = "entity_delete"
	TypeEntityDeleteResponse     Type = "entity_delete_response"
	TypeEntityDeleted            Type = "entity_deleted"

	TypeQuery         Type = "query"
	TypeQueryResponse Type = "query_response"
)

// Header is the part shared by every message. Responses carry the request id
// of the message they answer.
type Header struct {
	Type      Type   `json:"type"`
	RequestID uint32 `json:"request_id,omitempty"`
}

func (h Header) MsgType() Type {
	return h.Type
}

// Message is implemented by every message that embeds a Header.
type Message interface {
	MsgType() Type
}

// TypeOf returns the type of msg, or an empty type when msg is not a Message.
func TypeOf(msg any) Type {
	if m, ok := msg.(Message); ok {
		return m.MsgType()
	}
	return ""
}

// Msg is a received message whose header is decoded. The rest of the payload
// is decoded on demand with DataTo.
type Msg struct {
	Header

	data []byte
}

// Decode decodes the header of a raw message.
func Decode(data []byte) (Msg, error) {
	var h Header
	if err := json.Unmarshal(data, &h); err != nil {
		return Msg{}, errors.New("decoding message failed").
			WithType(ErrTypeMsgInvalid).
			Wrap(err)
	}

	if h.Type == "" {
		return Msg{}, errors.New("message has no type").
			WithType(ErrTypeMsgInvalid)
	}

	return Msg{
		Header: h,
		data:   data,
	}, nil
}

// DataTo decodes the whole message into v.
func (m Msg) DataTo(v any) error {
	if err := json.Unmarshal(m.data, v); err != nil {
		return errors.New("decoding message data failed").
			WithType(ErrTypeMsgInvalid).
			WithTag("type", m.Type).
			Wrap(err)
	}
	return nil
}

func Encode(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.New("encoding message failed").
			WithTag("type", TypeOf(msg)).
			Wrap(err)
	}
	return data, nil
}

type Error struct {
	Header
	ErrorType string `json:"error_type"`
	Message   string `json:"message"`
}

// NewError creates the error message that answers the request with the given
// id. Errors without a type are reported as internal errors.
func NewError(requestID uint32, err error) Error {
	errType := errors.Type(err)
	if errType == "" {
		errType = ErrTypeInternal
	}

	return Error{
		Header:    Header{Type: TypeError, RequestID: requestID},
		ErrorType: errType,
		Message:   err.Error(),
	}
}

type Ping struct {
	Header
}

type Pong struct {
	Header
}

func NewPong(requestID uint32) Pong {
	return Pong{Header: Header{Type: TypePong, RequestID: requestID}}
}

type SceneJoined struct {
	Header
	SceneID       uint32               `json:"scene_id"`
	SceneUUID     string               `json:"scene_uuid"`
	ParticipantID uint32               `json:"participant_id"`
	Entities      []models.EntityState `json:"entities"`
}

type SceneCleared struct {
	Header
	RemovedCount int `json:"removed_count"`
}

type ParticipantJoined struct {
	Header
	ParticipantID uint32 `json:"participant_id"`
}

type ParticipantLeft struct {
	Header
	ParticipantID uint32 `json:"participant_id"`
}

type EntityAdd struct {
	Header
	Radius  float64     `json:"radius"`
	Pose    models.Pose `json:"pose"`
	Persist bool        `json:"persist,omitempty"`
}

type EntityAddResponse struct {
	Header
	EntityID uint32 `json:"entity_id"`
}

type EntityAdded struct {
	Header
	Entity models.EntityState `json:"entity"`
}

type EntityUpdatePose struct {
	Header
	EntityID uint32      `json:"entity_id"`
	Pose     models.Pose `json:"pose"`
}

type EntityUpdatePoseResponse struct {
	Header
	EntityID uint32 `json:"entity_id"`
}

type EntityPoseUpdated struct {
	Header
	EntityID uint32      `json:"entity_id"`
	Pose     models.Pose `json:"pose"`
}

type EntityDelete struct {
	Header
	EntityID uint32 `json:"entity_id"`
}

type EntityDeleteResponse struct {
	Header
	EntityID uint32 `json:"entity_id"`
}

type EntityDeleted struct {
	Header
	EntityID uint32 `json:"entity_id"`
}

type Query struct {
	Header
	Query models.Query `json:"query"`
}

type QueryResponse struct {
	Header
	Entities []models.EntityState `json:"entities"`
}
