package models

import "time"

type Role string

const (
	RolePrimary   Role = "primary"
	RoleDependent Role = "dependent"
)

// Person is a member of the migrating household. Migrating is false for
// people staying on the source platform; they still appear in adoption
// reporting because cross-platform capabilities involve both sides.
type Person struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Contact     string `json:"contact,omitempty"`
	Role        Role   `json:"role"`
	Migrating   bool   `json:"migrating"`
}

type Capability string

const (
	CapabilityMessaging Capability = "messaging"
	CapabilityLocation  Capability = "location"
	CapabilityPayments  Capability = "payments"
)

// AllCapabilities fixes the reporting order of the adoption matrix.
var AllCapabilities = []Capability{CapabilityMessaging, CapabilityLocation, CapabilityPayments}

type AdoptionState string

const (
	AdoptionNotStarted AdoptionState = "not_started"
	AdoptionInvited    AdoptionState = "invited"
	AdoptionInstalled  AdoptionState = "installed"
	AdoptionConfigured AdoptionState = "configured"
)

// adoptionRank orders the onboarding steps. Every transition must move to
// exactly the next rank; skipping is rejected.
var adoptionRank = map[AdoptionState]int{
	AdoptionNotStarted: 0,
	AdoptionInvited:    1,
	AdoptionInstalled:  2,
	AdoptionConfigured: 3,
}

func (s AdoptionState) Rank() (int, bool) {
	r, ok := adoptionRank[s]
	return r, ok
}

// AdoptionStatus is the state of one (person, capability) pair.
type AdoptionStatus struct {
	PersonID         string        `json:"person_id"`
	Capability       Capability    `json:"capability"`
	State            AdoptionState `json:"state"`
	LastTransitionAt time.Time     `json:"last_transition_at"`
}
