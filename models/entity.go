package models

import (
	"math"
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/spatial/geometry"
	"github.com/aukilabs/spatial/octree"
	"github.com/aukilabs/spatial/quadtree"
	"github.com/go-gl/mathgl/mgl64"
)

// Entity is an object placed in a scene. Its bounds are a sphere of the given
// radius centered on the pose position.
type Entity struct {
	ID            uint32
	ParticipantID uint32
	Persist       bool
	Radius        float64

	mutex sync.RWMutex
	pose  Pose

	object    *octree.Object[*Entity]
	footprint *quadtree.Object[*Entity]
}

func (e *Entity) SetPose(v Pose) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.pose = v
}

func (e *Entity) Pose() Pose {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	return e.pose
}

// Bounds returns the sphere that bounds the entity.
func (e *Entity) Bounds() geometry.Sphere {
	return geometry.Sphere{
		Center: e.Pose().Position(),
		Radius: e.Radius,
	}
}

// Footprint returns the projection of the entity bounds on the ground, the x/z
// plane.
func (e *Entity) Footprint() geometry.Circle {
	p := e.Pose()
	return geometry.NewCircle(float64(p.PX), float64(p.PZ), e.Radius)
}

func (e *Entity) Validate() error {
	if e.Radius < 0 || math.IsNaN(e.Radius) || math.IsInf(e.Radius, 0) {
		return errors.New("invalid entity radius").
			WithType(ErrTypeInvalidEntity).
			WithTag("radius", e.Radius)
	}
	return e.Pose().Validate()
}

func (e *Entity) ToState() EntityState {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	return EntityState{
		ID:            e.ID,
		ParticipantID: e.ParticipantID,
		Persist:       e.Persist,
		Radius:        e.Radius,
		Pose:          e.pose,
	}
}

func EntitiesToState(entities []*Entity) []EntityState {
	states := make([]EntityState, len(entities))
	for i, e := range entities {
		states[i] = e.ToState()
	}
	return states
}

// EntityState is the serializable snapshot of an entity.
type EntityState struct {
	ID            uint32  `json:"id"`
	ParticipantID uint32  `json:"participant_id,omitempty"`
	Persist       bool    `json:"persist,omitempty"`
	Radius        float64 `json:"radius"`
	Pose          Pose    `json:"pose"`
}

type Pose struct {
	PX float32 `json:"px"`
	PY float32 `json:"py"`
	PZ float32 `json:"pz"`
	RX float32 `json:"rx"`
	RY float32 `json:"ry"`
	RZ float32 `json:"rz"`
	RW float32 `json:"rw"`
}

func (p Pose) Position() mgl64.Vec3 {
	return mgl64.Vec3{float64(p.PX), float64(p.PY), float64(p.PZ)}
}

func (p Pose) Validate() error {
	for _, v := range [...]float32{p.PX, p.PY, p.PZ, p.RX, p.RY, p.RZ, p.RW} {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return errors.New("invalid pose").
				WithType(ErrTypeInvalidEntity).
				WithTag("pose", p)
		}
	}
	return nil
}
