// Package workflow validates freight and service-request lifecycle
// transitions. Forward progress moves one step at a time along a fixed
// ladder; skips and backward moves are always rejected; cancellation is
// role-gated per current state. These guards are the canonical gate in
// front of every status-mutating write.
package workflow

import (
	"github.com/example/agriroute/internal/models"
)

// step is one forward transition in a lifecycle ladder.
type step struct {
	from  string
	to    string
	verb  string
	roles []models.Role
}

// Action is a legal move offered to a role at some status, used to drive
// UI affordances.
type Action struct {
	Verb string `json:"verb"`
	To   string `json:"to"`
}

// Machine is a lifecycle validator for one entity type.
type Machine struct {
	entity    Entity
	steps     []step
	canCancel func(from string, role models.Role) bool
}

func (m *Machine) stepFrom(from string) (step, bool) {
	for _, s := range m.steps {
		if s.from == from {
			return s, true
		}
	}
	return step{}, false
}

func roleIn(role models.Role, roles []models.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// CanTransition reports whether role may move the entity from -> to.
// True only for the immediate next step of the ladder when the role is
// authorized for it, or for an authorized cancellation.
func (m *Machine) CanTransition(from, to string, role models.Role) bool {
	if to == models.StatusCancelled {
		return m.canCancel(from, role)
	}
	s, ok := m.stepFrom(from)
	if !ok || s.to != to {
		return false
	}
	return roleIn(role, s.roles)
}

// AssertTransition returns a typed *TransitionError when the move is
// illegal, nil otherwise. Illegal moves are never coerced to valid ones.
func (m *Machine) AssertTransition(from, to string, role models.Role) error {
	if m.CanTransition(from, to, role) {
		return nil
	}
	return &TransitionError{Entity: m.entity, From: from, To: to, Role: role}
}

// NextStatus returns the immediate forward status after from, if any.
func (m *Machine) NextStatus(from string) (string, bool) {
	s, ok := m.stepFrom(from)
	if !ok {
		return "", false
	}
	return s.to, true
}

// AllowedActions lists every legal move role may make from status.
func (m *Machine) AllowedActions(status string, role models.Role) []Action {
	var out []Action
	if s, ok := m.stepFrom(status); ok && roleIn(role, s.roles) {
		out = append(out, Action{Verb: s.verb, To: s.to})
	}
	if m.canCancel(status, role) {
		out = append(out, Action{Verb: "cancel", To: models.StatusCancelled})
	}
	return out
}

// Freight: OPEN -> ACCEPTED -> LOADING -> IN_TRANSIT -> DELIVERED ->
// COMPLETED. The producer accepts proposals and is the only non-admin
// role that can confirm completion; the driver owns the road legs.
var Freight = &Machine{
	entity: EntityFreight,
	steps: []step{
		{models.StatusOpen, models.StatusAccepted, "accept", []models.Role{models.RoleProducer, models.RoleAdmin}},
		{models.StatusAccepted, models.StatusLoading, "start_loading", []models.Role{models.RoleDriver, models.RoleAdmin}},
		{models.StatusLoading, models.StatusInTransit, "depart", []models.Role{models.RoleDriver, models.RoleAdmin}},
		{models.StatusInTransit, models.StatusDelivered, "deliver", []models.Role{models.RoleDriver, models.RoleAdmin}},
		{models.StatusDelivered, models.StatusCompleted, "confirm_completion", []models.Role{models.RoleProducer, models.RoleAdmin}},
	},
	canCancel: func(from string, role models.Role) bool {
		switch from {
		case models.StatusCompleted, models.StatusCancelled, models.StatusRejected, models.StatusDelivered:
			return false
		}
		switch role {
		case models.RoleProducer, models.RoleAdmin:
			return true
		case models.RoleDriver:
			// drivers can back out only before the cargo is moving
			return from == models.StatusAccepted || from == models.StatusLoading
		}
		return false
	},
}

// ServiceRequest: OPEN -> ACCEPTED -> ON_THE_WAY -> IN_PROGRESS ->
// COMPLETED. The provider accepts and works; the requester confirms.
var ServiceRequest = &Machine{
	entity: EntityServiceRequest,
	steps: []step{
		{models.StatusOpen, models.StatusAccepted, "accept", []models.Role{models.RoleServiceProvider, models.RoleAdmin}},
		{models.StatusAccepted, models.StatusOnTheWay, "head_out", []models.Role{models.RoleServiceProvider, models.RoleAdmin}},
		{models.StatusOnTheWay, models.StatusInProgress, "start_work", []models.Role{models.RoleServiceProvider, models.RoleAdmin}},
		{models.StatusInProgress, models.StatusCompleted, "confirm_completion", []models.Role{models.RoleProducer, models.RoleAdmin}},
	},
	canCancel: func(from string, role models.Role) bool {
		switch from {
		case models.StatusCompleted, models.StatusCancelled, models.StatusRejected:
			return false
		}
		switch role {
		case models.RoleProducer, models.RoleAdmin:
			return true
		case models.RoleServiceProvider:
			return from == models.StatusAccepted || from == models.StatusOnTheWay
		}
		return false
	},
}
