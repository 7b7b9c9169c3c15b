package models

import (
	"strconv"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

const (
	ErrTypeInvalidConfig      = "invalid_config"
	ErrTypeInvalidID          = "invalid_id"
	ErrTypeInvalidEntity      = "invalid_entity"
	ErrTypeInvalidQuery       = "invalid_query"
	ErrTypeEntityNotFound     = "entity_not_found"
	ErrTypeEntityAlreadyAdded = "entity_already_added"
	ErrTypeSceneNotFound      = "scene_not_found"
	ErrTypeSceneDeleted       = "scene_deleted"
)

// ParseID parses a scene or entity id from its decimal representation. Ids
// start from 1.
func ParseID(s string) (uint32, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id").
			WithType(ErrTypeInvalidID).
			WithTag("id", s)
	}
	return uint32(id), nil
}
