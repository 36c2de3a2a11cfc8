package models

import (
	"time"

	"github.com/google/uuid"
)

// InstanceState is the lifecycle state of one physical packaging unit.
type InstanceState string

const (
	StateAvailable  InstanceState = "available"
	StateInUse      InstanceState = "in_use"
	StateAtRetailer InstanceState = "at_retailer"
	StateAtHub      InstanceState = "at_hub"
	StateWashing    InstanceState = "washing"
	StateDamaged    InstanceState = "damaged"
	StateLost       InstanceState = "lost"
	StateRetired    InstanceState = "retired"
)

func (s InstanceState) Valid() bool {
	_, ok := stateTransitions[s]
	return ok
}

// Terminal reports whether no further transitions are allowed from s.
func (s InstanceState) Terminal() bool {
	return s == StateRetired
}

// stateTransitions maps each state to the set of states reachable from it.
// retired is terminal; lost and damaged instances can re-enter circulation
// through an administrative reinstate.
var stateTransitions = map[InstanceState][]InstanceState{
	StateAvailable:  {StateInUse, StateAtRetailer, StateAtHub, StateDamaged, StateLost, StateRetired},
	StateInUse:      {StateAtRetailer, StateAtHub, StateDamaged, StateLost, StateRetired},
	StateAtRetailer: {StateInUse, StateAtHub, StateDamaged, StateLost, StateRetired},
	StateAtHub:      {StateWashing, StateAvailable, StateAtRetailer, StateDamaged, StateLost, StateRetired},
	StateWashing:    {StateAtHub, StateAvailable, StateDamaged, StateLost, StateRetired},
	StateDamaged:    {StateAvailable, StateAtHub, StateLost, StateRetired},
	StateLost:       {StateAvailable, StateAtRetailer, StateAtHub, StateRetired},
	StateRetired:    {},
}

// CanTransition reports whether from -> to is in the allowed transition set.
func CanTransition(from, to InstanceState) bool {
	for _, t := range stateTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// TransitionsFrom returns a copy of the allowed targets for a state.
func TransitionsFrom(s InstanceState) []InstanceState {
	out := make([]InstanceState, len(stateTransitions[s]))
	copy(out, stateTransitions[s])
	return out
}

// Instance is one physical, individually trackable packaging unit.
type Instance struct {
	ID        uuid.UUID     `json:"id" db:"id"`
	CatalogID uuid.UUID     `json:"catalog_id" db:"catalog_id"`
	UIDCode   string        `json:"uid_code" db:"uid_code"`
	State     InstanceState `json:"state" db:"state"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	RetiredAt *time.Time    `json:"retired_at,omitempty" db:"retired_at"`
}

// InstanceFilter holds filter criteria for instance listings.
type InstanceFilter struct {
	State     *InstanceState `json:"state,omitempty"`
	CatalogID *uuid.UUID     `json:"catalog_id,omitempty"`
	Limit     int            `json:"limit,omitempty"`
	Offset    int            `json:"offset,omitempty"`
}
