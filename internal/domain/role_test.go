package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleCapabilities(t *testing.T) {
	assert.True(t, RoleHost.CanProduce())
	assert.True(t, RoleProducer.CanProduce())
	assert.False(t, RoleConsumer.CanProduce())
	assert.False(t, RoleWaiting.CanProduce())

	assert.True(t, RoleHost.CanConsume())
	assert.True(t, RoleProducer.CanConsume())
	assert.True(t, RoleConsumer.CanConsume())
	assert.False(t, RoleWaiting.CanConsume())
}

func TestRoleTransitions(t *testing.T) {
	roles := []Role{RoleWaiting, RoleConsumer, RoleProducer, RoleHost}
	allowed := map[[2]Role]bool{
		{RoleWaiting, RoleConsumer}:  true,
		{RoleWaiting, RoleProducer}:  true,
		{RoleConsumer, RoleProducer}: true,
		{RoleProducer, RoleConsumer}: true,
	}

	for _, from := range roles {
		for _, to := range roles {
			got := from.CanTransitionTo(to)
			assert.Equalf(t, allowed[[2]Role{from, to}], got, "%s -> %s", from, to)
		}
	}
}

func TestNewIdentity(t *testing.T) {
	id, err := NewIdentity("alice", "Alice")
	require.NoError(t, err)
	assert.Equal(t, UserID("alice"), id.UserID)
	assert.Equal(t, "Alice", id.DisplayName)

	id, err = NewIdentity("alice", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultDisplayName, id.DisplayName)

	_, err = NewIdentity("", "Alice")
	assert.ErrorIs(t, err, ErrUserIDEmpty)

	_, err = NewIdentity(strings.Repeat("x", MaxUserIDLen+1), "Alice")
	assert.ErrorIs(t, err, ErrUserIDTooLong)

	_, err = NewIdentity("alice", strings.Repeat("x", MaxDisplayNameLen+1))
	assert.ErrorIs(t, err, ErrDisplayNameTooLong)
}
