package portal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackerSequence(t *testing.T) {
	var tr Tracker
	assert.Equal(t, Disconnected, tr.Phase())

	assert.Equal(t, Disconnected, tr.Update(0))
	assert.Equal(t, ClientJoined, tr.Update(1))
	assert.Equal(t, ClientJoined, tr.Update(2))

	tr.Viewed()
	assert.Equal(t, PortalViewed, tr.Phase())
	assert.Equal(t, PortalViewed, tr.Update(1), "viewing survives while a client stays")

	assert.Equal(t, Disconnected, tr.Update(0), "losing every client resets the phase")
	assert.Equal(t, ClientJoined, tr.Update(1))
}

func TestTrackerViewedWithoutClients(t *testing.T) {
	var tr Tracker
	tr.Viewed()
	assert.Equal(t, PortalViewed, tr.Phase())
}

func TestTrackerSavedIsSticky(t *testing.T) {
	var tr Tracker
	tr.Update(1)
	tr.Saved()
	for _, clients := range []int{0, 1, 0} {
		assert.Equal(t, ConfigSaved, tr.Update(clients))
	}
	tr.Viewed()
	assert.Equal(t, ConfigSaved, tr.Phase())
}

func TestPhaseString(t *testing.T) {
	tests := map[Phase]string{
		Disconnected: "disconnected",
		ClientJoined: "client-joined",
		PortalViewed: "portal-viewed",
		ConfigSaved:  "config-saved",
	}
	for p, want := range tests {
		assert.Equal(t, want, p.String())
	}
}
