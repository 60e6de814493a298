package models

// ActorKind classifies the account performing a push
type ActorKind int

const (
	// ActorNormal is an interactive user with a stable name and email
	ActorNormal ActorKind = iota
	// ActorService is a service account (e.g., an access key)
	ActorService
	// ActorOther is any other account type
	ActorOther
)

// ParseActorKind maps "normal" and "service" to their kinds, anything else to ActorOther
func ParseActorKind(s string) ActorKind {
	switch s {
	case "normal", "":
		return ActorNormal
	case "service":
		return ActorService
	default:
		return ActorOther
	}
}

// Actor is the authenticated account behind a push
type Actor struct {
	Kind        ActorKind
	DisplayName string
	// Email is empty when the account has none
	Email string
}

// NewActor creates a new Actor
func NewActor(kind ActorKind, displayName, email string) *Actor {
	return &Actor{
		Kind:        kind,
		DisplayName: displayName,
		Email:       email,
	}
}

// IsNormal returns true for non-nil normal accounts
func (a *Actor) IsNormal() bool {
	return a != nil && a.Kind == ActorNormal
}

// IsService returns true for non-nil service accounts
func (a *Actor) IsService() bool {
	return a != nil && a.Kind == ActorService
}
