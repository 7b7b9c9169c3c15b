package models

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/spatial/geometry"
	"github.com/aukilabs/spatial/octree"
	"github.com/aukilabs/spatial/quadtree"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

const (
	DefaultWorldHalfEdge = 1024
)

// SceneConfig describes the space covered by a scene and how it is indexed.
type SceneConfig struct {
	// Half of the edge of the world cube, centered on the origin.
	WorldHalfEdge float64

	VolumeSplitThreshold int
	GroundSplitThreshold int
	MaxDepth             int

	// Disables the quadtree that indexes entity footprints on the x/z plane.
	DisableGroundIndex bool
}

func DefaultSceneConfig() SceneConfig {
	return SceneConfig{
		WorldHalfEdge:        DefaultWorldHalfEdge,
		VolumeSplitThreshold: octree.DefaultSplitThreshold,
		GroundSplitThreshold: quadtree.DefaultSplitThreshold,
		MaxDepth:             octree.DefaultMaxDepth,
	}
}

// Scene is a space that contains entities and participants. Entities are
// indexed by an octree for volume queries and by a quadtree over the ground
// plane for footprint queries.
type Scene struct {
	ID        uint32
	SceneUUID string
	CreatedAt time.Time

	participantIDs   SequentialIDGenerator
	participantMutex sync.RWMutex
	participants     map[uint32]*Participant

	entityIDs   SequentialIDGenerator
	entityMutex sync.RWMutex
	closed      bool
	entities    map[uint32]*Entity
	volume      *octree.Octree[*Entity]
	ground      *quadtree.Quadtree[*Entity]
}

func NewScene(id uint32, conf SceneConfig) (*Scene, error) {
	h := conf.WorldHalfEdge

	volume, err := octree.New[*Entity](geometry.NewCube(0, 0, 0, h),
		octree.WithSplitThreshold(conf.VolumeSplitThreshold),
		octree.WithMaxDepth(conf.MaxDepth),
		octree.WithName("volume"),
	)
	if err != nil {
		return nil, errors.New("creating scene volume index failed").
			WithType(ErrTypeInvalidConfig).
			Wrap(err)
	}

	var ground *quadtree.Quadtree[*Entity]
	if !conf.DisableGroundIndex {
		ground, err = quadtree.New[*Entity](geometry.NewRectangle(-h, -h, 2*h, 2*h),
			quadtree.WithSplitThreshold(conf.GroundSplitThreshold),
			quadtree.WithMaxDepth(conf.MaxDepth),
			quadtree.WithName("ground"),
		)
		if err != nil {
			return nil, errors.New("creating scene ground index failed").
				WithType(ErrTypeInvalidConfig).
				Wrap(err)
		}
	}

	return &Scene{
		ID:           id,
		SceneUUID:    uuid.New().String(),
		CreatedAt:    time.Now(),
		participants: make(map[uint32]*Participant),
		entities:     make(map[uint32]*Entity),
		volume:       volume,
		ground:       ground,
	}, nil
}

func (s *Scene) NewParticipantID() uint32 {
	return s.participantIDs.New()
}

func (s *Scene) AddParticipant(p *Participant) {
	s.participantMutex.Lock()
	defer s.participantMutex.Unlock()

	s.participants[p.ID] = p
}

func (s *Scene) RemoveParticipant(p *Participant) {
	s.participantMutex.Lock()
	defer s.participantMutex.Unlock()

	delete(s.participants, p.ID)
	s.participantIDs.Reuse(p.ID)
}

func (s *Scene) GetParticipants() []*Participant {
	s.participantMutex.RLock()
	defer s.participantMutex.RUnlock()

	participants := make([]*Participant, 0, len(s.participants))
	for _, p := range s.participants {
		participants = append(participants, p)
	}
	return participants
}

func (s *Scene) ParticipantCount() int {
	s.participantMutex.RLock()
	defer s.participantMutex.RUnlock()

	return len(s.participants)
}

// Broadcast sends msg to all the participants but the sender. The sender can
// be nil.
func (s *Scene) Broadcast(sender *Participant, msg any) {
	s.participantMutex.RLock()
	defer s.participantMutex.RUnlock()

	for _, p := range s.participants {
		if p == sender {
			continue
		}
		p.Responder.Send(msg)
	}
}

func (s *Scene) NewEntityID() uint32 {
	return s.entityIDs.New()
}

// AddEntity adds the entity and indexes it at its current pose.
func (s *Scene) AddEntity(e *Entity) error {
	if err := e.Validate(); err != nil {
		return err
	}

	s.entityMutex.Lock()
	defer s.entityMutex.Unlock()

	if s.closed {
		return errors.New("scene is deleted").
			WithType(ErrTypeSceneNotFound).
			WithTag("scene_id", s.ID).
			WithTag("entity_id", e.ID)
	}

	if _, ok := s.entities[e.ID]; ok {
		return errors.New("entity is already added").
			WithType(ErrTypeEntityAlreadyAdded).
			WithTag("scene_id", s.ID).
			WithTag("entity_id", e.ID)
	}

	e.object = octree.NewObject(e.Bounds(), e)
	s.volume.Insert(e.object)

	if s.ground != nil {
		e.footprint = quadtree.NewObject(e.Footprint(), e)
		s.ground.Insert(e.footprint)
	}

	s.entities[e.ID] = e
	instrumentIncreaseEntityGauge()
	return nil
}

// CreateEntity validates the entity, assigns it a new id and adds it.
func (s *Scene) CreateEntity(e *Entity) error {
	if err := e.Validate(); err != nil {
		return err
	}

	e.ID = s.NewEntityID()
	return s.AddEntity(e)
}

// RemoveEntity removes the entity with the given id and returns it.
func (s *Scene) RemoveEntity(id uint32) (*Entity, error) {
	s.entityMutex.Lock()
	defer s.entityMutex.Unlock()

	e, ok := s.entities[id]
	if !ok {
		return nil, s.entityNotFound(id)
	}

	s.removeEntity(e)
	return e, nil
}

func (s *Scene) removeEntity(e *Entity) {
	s.volume.Remove(e.object)
	e.object = nil

	if e.footprint != nil {
		s.ground.Remove(e.footprint)
		e.footprint = nil
	}

	delete(s.entities, e.ID)
	s.entityIDs.Reuse(e.ID)
	instrumentDecreaseEntityGauge()
}

func (s *Scene) EntityByID(id uint32) (*Entity, bool) {
	s.entityMutex.RLock()
	defer s.entityMutex.RUnlock()

	e, ok := s.entities[id]
	return e, ok
}

// Entities returns the scene entities sorted by id.
func (s *Scene) Entities() []*Entity {
	s.entityMutex.RLock()
	defer s.entityMutex.RUnlock()

	entities := make([]*Entity, 0, len(s.entities))
	for _, e := range s.entities {
		entities = append(entities, e)
	}
	sortEntities(entities)
	return entities
}

func (s *Scene) EntityCount() int {
	s.entityMutex.RLock()
	defer s.entityMutex.RUnlock()

	return len(s.entities)
}

// SetEntityPose moves the entity and updates the indexes.
func (s *Scene) SetEntityPose(id uint32, pose Pose) (*Entity, error) {
	if err := pose.Validate(); err != nil {
		return nil, err
	}

	s.entityMutex.Lock()
	defer s.entityMutex.Unlock()

	e, ok := s.entities[id]
	if !ok {
		return nil, s.entityNotFound(id)
	}

	e.SetPose(pose)
	s.volume.Update(e.object, e.Bounds())

	if e.footprint != nil {
		s.ground.Update(e.footprint, mgl64.Vec2{float64(pose.PX), float64(pose.PZ)})
	}
	return e, nil
}

// Query returns the entities matching the query, sorted by id.
func (s *Scene) Query(q Query) ([]*Entity, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	s.entityMutex.RLock()
	defer s.entityMutex.RUnlock()

	var entities []*Entity

	switch q.Type {
	case QueryTypeSphere, QueryTypeCube, QueryTypeFrustum:
		var objects []*octree.Object[*Entity]
		switch q.Type {
		case QueryTypeSphere:
			objects = s.volume.QuerySphere(q.Sphere(), nil)
		case QueryTypeCube:
			objects = s.volume.QueryCube(q.Cube(), nil)
		default:
			objects = s.volume.QueryFrustum(q.Frustum(), nil)
		}

		entities = make([]*Entity, len(objects))
		for i, o := range objects {
			entities[i] = o.Data
		}

	default:
		if s.ground == nil {
			return nil, errors.New("ground index is disabled").
				WithType(ErrTypeInvalidQuery).
				WithTag("type", q.Type)
		}

		var objects []*quadtree.Object[*Entity]
		if q.Type == QueryTypeCircle {
			objects = s.ground.QueryCircle(q.Circle(), nil)
		} else {
			objects = s.ground.QueryRectangle(q.Rectangle(), nil)
		}

		entities = make([]*Entity, len(objects))
		for i, o := range objects {
			entities[i] = o.Data
		}
	}

	sortEntities(entities)
	instrumentQuery(q.Type)
	return entities, nil
}

// Clear removes all the entities and returns how many were removed.
func (s *Scene) Clear() int {
	s.entityMutex.Lock()
	defer s.entityMutex.Unlock()

	count := len(s.entities)
	for _, e := range s.entities {
		e.object = nil
		e.footprint = nil
	}

	s.volume.Clear()
	if s.ground != nil {
		s.ground.Clear()
	}

	s.entities = make(map[uint32]*Entity)
	s.entityIDs.Reset()
	instrumentRemoveEntities(count)

	s.participantMutex.RLock()
	for _, p := range s.participants {
		p.clearEntities()
	}
	s.participantMutex.RUnlock()

	logs.WithTag("scene_id", s.ID).
		WithTag("entity_count", count).
		Info("scene cleared")
	return count
}

// Close clears the scene and closes the connections of its participants with
// reason. A closed scene rejects new entities.
func (s *Scene) Close(reason error) int {
	s.entityMutex.Lock()
	s.closed = true
	s.entityMutex.Unlock()

	count := s.Clear()
	for _, p := range s.GetParticipants() {
		p.Responder.Close(reason)
	}
	return count
}

func (s *Scene) Closed() bool {
	s.entityMutex.RLock()
	defer s.entityMutex.RUnlock()

	return s.closed
}

// SceneStats describes the scene and the shape of its indexes.
type SceneStats struct {
	EntityCount      int             `json:"entity_count"`
	ParticipantCount int             `json:"participant_count"`
	Volume           octree.Stats    `json:"volume"`
	Ground           *quadtree.Stats `json:"ground,omitempty"`
}

func (s *Scene) Stats() SceneStats {
	s.entityMutex.RLock()
	defer s.entityMutex.RUnlock()

	stats := SceneStats{
		EntityCount:      len(s.entities),
		ParticipantCount: s.ParticipantCount(),
		Volume:           s.volume.Stats(),
	}

	if s.ground != nil {
		ground := s.ground.Stats()
		stats.Ground = &ground
	}
	return stats
}

// SceneState is the serializable description of a scene.
type SceneState struct {
	ID               uint32    `json:"id"`
	SceneUUID        string    `json:"scene_uuid"`
	CreatedAt        time.Time `json:"created_at"`
	EntityCount      int       `json:"entity_count"`
	ParticipantCount int       `json:"participant_count"`
}

func (s *Scene) ToState() SceneState {
	return SceneState{
		ID:               s.ID,
		SceneUUID:        s.SceneUUID,
		CreatedAt:        s.CreatedAt,
		EntityCount:      s.EntityCount(),
		ParticipantCount: s.ParticipantCount(),
	}
}

func (s *Scene) entityNotFound(id uint32) error {
	return errors.New("entity not found").
		WithType(ErrTypeEntityNotFound).
		WithTag("scene_id", s.ID).
		WithTag("entity_id", id)
}

func sortEntities(entities []*Entity) {
	sort.Slice(entities, func(i, j int) bool {
		return entities[i].ID < entities[j].ID
	})
}

type SceneStore struct {
	initOnce sync.Once
	mutex    sync.RWMutex
	scenes   map[uint32]*Scene
	ids      SequentialIDGenerator
}

func (s *SceneStore) init() {
	s.scenes = map[uint32]*Scene{}
}

func (s *SceneStore) NewID() uint32 {
	return s.ids.New()
}

// ReleaseID makes an id returned by NewID available again when no scene was
// added with it.
func (s *SceneStore) ReleaseID(id uint32) {
	s.ids.Reuse(id)
}

func (s *SceneStore) Add(ctx context.Context, scene *Scene) {
	s.initOnce.Do(s.init)
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.scenes[scene.ID] = scene
	instrumentIncreaseSceneGauge()
	instrumentCountScene()
}

// Remove removes the scene from the store and closes it. Its participants are
// disconnected with a scene_deleted error.
func (s *SceneStore) Remove(ctx context.Context, scene *Scene) {
	if !s.remove(scene) {
		return
	}

	scene.Close(errors.New("scene deleted").
		WithType(ErrTypeSceneDeleted).
		WithTag("scene_id", scene.ID).
		WithTag("scene_uuid", scene.SceneUUID))
}

func (s *SceneStore) remove(scene *Scene) bool {
	s.initOnce.Do(s.init)
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if current, ok := s.scenes[scene.ID]; !ok || current != scene {
		return false
	}

	delete(s.scenes, scene.ID)
	s.ids.Reuse(scene.ID)
	instrumentDecreaseSceneGauge()
	return true
}

func (s *SceneStore) GetByID(id uint32) (*Scene, error) {
	s.initOnce.Do(s.init)
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	scene, ok := s.scenes[id]
	if !ok {
		return nil, errors.New("scene not found").
			WithType(ErrTypeSceneNotFound).
			WithTag("scene_id", id)
	}
	return scene, nil
}

// Scenes returns the stored scenes sorted by id.
func (s *SceneStore) Scenes() []*Scene {
	s.initOnce.Do(s.init)
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	scenes := make([]*Scene, 0, len(s.scenes))
	for _, scene := range s.scenes {
		scenes = append(scenes, scene)
	}
	sort.Slice(scenes, func(i, j int) bool {
		return scenes[i].ID < scenes[j].ID
	})
	return scenes
}
