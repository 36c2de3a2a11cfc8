package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition_AllowedPaths(t *testing.T) {
	cases := []struct {
		from, to InstanceState
	}{
		{StateAvailable, StateInUse},
		{StateInUse, StateAtRetailer},
		{StateAtRetailer, StateAtHub},
		{StateAtHub, StateWashing},
		{StateWashing, StateAtHub},
		{StateWashing, StateAvailable},
		{StateAtHub, StateAvailable},
		{StateDamaged, StateAvailable},
		{StateLost, StateAvailable},
		{StateDamaged, StateRetired},
	}
	for _, c := range cases {
		assert.True(t, CanTransition(c.from, c.to), "%s -> %s should be allowed", c.from, c.to)
	}
}

func TestCanTransition_ForbiddenPaths(t *testing.T) {
	cases := []struct {
		from, to InstanceState
	}{
		{StateAvailable, StateWashing},
		{StateInUse, StateAvailable},
		{StateInUse, StateWashing},
		{StateAtRetailer, StateAvailable},
		{StateLost, StateInUse},
		{StateDamaged, StateInUse},
	}
	for _, c := range cases {
		assert.False(t, CanTransition(c.from, c.to), "%s -> %s should be rejected", c.from, c.to)
	}
}

func TestRetiredIsTerminal(t *testing.T) {
	assert.True(t, StateRetired.Terminal())
	assert.Empty(t, TransitionsFrom(StateRetired))

	all := []InstanceState{
		StateAvailable, StateInUse, StateAtRetailer, StateAtHub,
		StateWashing, StateDamaged, StateLost, StateRetired,
	}
	for _, s := range all {
		assert.False(t, CanTransition(StateRetired, s), "retired -> %s should be rejected", s)
	}
}

func TestTransitionTableIsClosed(t *testing.T) {
	all := []InstanceState{
		StateAvailable, StateInUse, StateAtRetailer, StateAtHub,
		StateWashing, StateDamaged, StateLost, StateRetired,
	}
	for _, from := range all {
		assert.True(t, from.Valid())
		for _, to := range TransitionsFrom(from) {
			assert.True(t, to.Valid(), "%s reaches unknown state %s", from, to)
			assert.NotEqual(t, from, to, "%s lists a self-transition", from)
		}
	}
	assert.False(t, InstanceState("melted").Valid())
}

func TestEveryStateCanReachRetired(t *testing.T) {
	for _, s := range []InstanceState{
		StateAvailable, StateInUse, StateAtRetailer, StateAtHub,
		StateWashing, StateDamaged, StateLost,
	} {
		assert.True(t, CanTransition(s, StateRetired), "%s should be retirable", s)
	}
}
