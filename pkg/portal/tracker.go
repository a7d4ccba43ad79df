// Package portal is the local configuration portal: an HTTP settings page,
// firmware upload, and the phase shown on the display while it is open.
package portal

// Phase is what the person configuring the device should do next. It indexes
// texts.Texts.PortalInstructions.
type Phase int

const (
	Disconnected Phase = iota
	ClientJoined
	PortalViewed
	ConfigSaved
)

func (p Phase) String() string {
	switch p {
	case ClientJoined:
		return "client-joined"
	case PortalViewed:
		return "portal-viewed"
	case ConfigSaved:
		return "config-saved"
	}
	return "disconnected"
}

// Tracker follows the portal phase. Once the configuration is saved the
// phase no longer changes.
type Tracker struct {
	phase Phase
}

func (t *Tracker) Phase() Phase { return t.phase }

// Update applies the current number of connected clients and returns the
// resulting phase.
func (t *Tracker) Update(clients int) Phase {
	switch {
	case t.phase == ConfigSaved:
	case clients == 0:
		t.phase = Disconnected
	case t.phase == Disconnected:
		t.phase = ClientJoined
	}
	return t.phase
}

// Viewed records that the settings page was loaded.
func (t *Tracker) Viewed() {
	if t.phase < PortalViewed {
		t.phase = PortalViewed
	}
}

// Saved records that settings were stored.
func (t *Tracker) Saved() {
	t.phase = ConfigSaved
}
