package complaint

import (
	"fmt"
	"strings"
)

// ActorKind identifies who performed an action.
type ActorKind string

const (
	ActorCitizen  ActorKind = "CITIZEN"
	ActorEmployee ActorKind = "EMPLOYEE"
	ActorAdmin    ActorKind = "ADMIN"
)

// ParseActorKind normalizes an actor kind.
func ParseActorKind(v string) (ActorKind, error) {
	k := ActorKind(strings.ToUpper(strings.TrimSpace(v)))
	switch k {
	case ActorCitizen, ActorEmployee, ActorAdmin:
		return k, nil
	}
	return "", NewValidationError(fmt.Sprintf("unknown actor kind %q", v))
}

// Actor is the caller on whose behalf a command runs.
type Actor struct {
	Kind ActorKind `json:"kind"`
	ID   string    `json:"id"`
	Name string    `json:"name,omitempty"`
}

// Validate checks kind and id.
func (a Actor) Validate() error {
	if _, err := ParseActorKind(string(a.Kind)); err != nil {
		return err
	}
	if strings.TrimSpace(a.ID) == "" {
		return NewValidationError("actor id is required")
	}
	return nil
}

// IsStaff reports whether the actor works the case on the agency side.
func (a Actor) IsStaff() bool {
	return a.Kind == ActorEmployee || a.Kind == ActorAdmin
}

func (a Actor) String() string {
	return strings.ToLower(string(a.Kind)) + ":" + a.ID
}
