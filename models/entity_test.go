package models

import (
	"math"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/spatial/geometry"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"
)

func TestEntityPose(t *testing.T) {
	var e Entity

	p := Pose{
		PX: 1.0,
		PY: 2.0,
		PZ: 3.0,
		RX: 4.0,
		RY: 5.0,
		RZ: 6.0,
		RW: 7.0,
	}

	e.SetPose(p)
	require.Equal(t, p, e.Pose())
	require.Equal(t, mgl64.Vec3{1, 2, 3}, e.Pose().Position())
}

func TestEntityBounds(t *testing.T) {
	e := Entity{
		ID:     1,
		Radius: 2.5,
		pose:   Pose{PX: 1, PY: 2, PZ: 3, RW: 1},
	}

	require.Equal(t, geometry.NewSphere(1, 2, 3, 2.5), e.Bounds())
	require.Equal(t, geometry.NewCircle(1, 3, 2.5), e.Footprint())
}

func TestEntityValidate(t *testing.T) {
	tests := []struct {
		name   string
		entity *Entity
		valid  bool
	}{
		{
			name:   "valid entity",
			entity: &Entity{Radius: 1, pose: Pose{RW: 1}},
			valid:  true,
		},
		{
			name:   "point entity",
			entity: &Entity{},
			valid:  true,
		},
		{
			name:   "negative radius",
			entity: &Entity{Radius: -1},
		},
		{
			name:   "nan radius",
			entity: &Entity{Radius: math.NaN()},
		},
		{
			name:   "infinite position",
			entity: &Entity{Radius: 1, pose: Pose{PX: float32(math.Inf(1))}},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.entity.Validate()
			if test.valid {
				require.NoError(t, err)
				return
			}

			require.Error(t, err)
			require.Equal(t, ErrTypeInvalidEntity, errors.Type(err))
		})
	}
}

func TestEntityToState(t *testing.T) {
	e := &Entity{
		ID:            1,
		ParticipantID: 11,
		Persist:       true,
		Radius:        3,
		pose: Pose{
			PX: 1.0,
			PY: 2.0,
			PZ: 3.0,
			RX: 4.0,
			RY: 5.0,
			RZ: 6.0,
			RW: 7.0,
		},
	}

	s := e.ToState()
	require.Equal(t, e.ID, s.ID)
	require.Equal(t, e.ParticipantID, s.ParticipantID)
	require.True(t, s.Persist)
	require.Equal(t, e.Radius, s.Radius)
	require.Equal(t, e.pose, s.Pose)

	states := EntitiesToState([]*Entity{e, {ID: 2}})
	require.Len(t, states, 2)
	require.Equal(t, s, states[0])
	require.Equal(t, uint32(2), states[1].ID)
}
