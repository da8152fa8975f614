package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInvitationStatusCanTransitionTo(t *testing.T) {
	t.Run("pending permits every terminal state", func(t *testing.T) {
		assert.True(t, InvitationPending.CanTransitionTo(InvitationAccepted))
		assert.True(t, InvitationPending.CanTransitionTo(InvitationExpired))
		assert.True(t, InvitationPending.CanTransitionTo(InvitationCancelled))
	})

	t.Run("pending does not permit pending", func(t *testing.T) {
		assert.False(t, InvitationPending.CanTransitionTo(InvitationPending))
	})

	t.Run("terminal states permit nothing", func(t *testing.T) {
		for _, from := range []InvitationStatus{InvitationAccepted, InvitationExpired, InvitationCancelled} {
			for _, to := range []InvitationStatus{InvitationPending, InvitationAccepted, InvitationExpired, InvitationCancelled} {
				assert.False(t, from.CanTransitionTo(to), "%s -> %s should be forbidden", from, to)
			}
		}
	})
}

func TestInvitationStatusTerminal(t *testing.T) {
	assert.False(t, InvitationPending.Terminal())
	assert.True(t, InvitationAccepted.Terminal())
	assert.True(t, InvitationExpired.Terminal())
	assert.True(t, InvitationCancelled.Terminal())
}

func TestTenantInvitationIsExpired(t *testing.T) {
	now := time.Now()
	inv := TenantInvitation{ExpiresAt: now.Add(time.Hour)}

	assert.False(t, inv.IsExpired(now))
	assert.False(t, inv.IsExpired(now.Add(time.Hour)), "deadline itself is still valid")
	assert.True(t, inv.IsExpired(now.Add(time.Hour+time.Second)))
}

func TestTenantInvitationEffectiveStatus(t *testing.T) {
	now := time.Now()

	t.Run("pending before deadline stays pending", func(t *testing.T) {
		inv := TenantInvitation{Status: InvitationPending, ExpiresAt: now.Add(time.Hour)}
		assert.Equal(t, InvitationPending, inv.EffectiveStatus(now))
	})

	t.Run("stale pending row past deadline reads expired", func(t *testing.T) {
		inv := TenantInvitation{Status: InvitationPending, ExpiresAt: now.Add(-time.Minute)}
		assert.Equal(t, InvitationExpired, inv.EffectiveStatus(now))
	})

	t.Run("terminal states are unaffected by the deadline", func(t *testing.T) {
		inv := TenantInvitation{Status: InvitationAccepted, ExpiresAt: now.Add(-time.Minute)}
		assert.Equal(t, InvitationAccepted, inv.EffectiveStatus(now))

		inv.Status = InvitationCancelled
		assert.Equal(t, InvitationCancelled, inv.EffectiveStatus(now))
	})
}
