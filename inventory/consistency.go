package inventory

import "context"

// ConsistencyLevel defines the consistency requirements for read-only Store operations.
type ConsistencyLevel int

const (
	// StrongConsistency requires reads from the primary database. This is the default, and every
	// read inside a Store.Update transaction is strongly consistent regardless of this setting.
	StrongConsistency ConsistencyLevel = iota

	// EventualConsistency allows Store.View to read from a replica. Availability previews and
	// reporting reads can tolerate slightly stale data; commits never use it.
	EventualConsistency
)

// contextKey is a private type to prevent context key collisions.
type contextKey string

// ConsistencyLevelKey is the context key used to store consistency level preferences.
const ConsistencyLevelKey contextKey = "inventory.consistency_level"

// ActorKey is the context key used to store the acting user.
const ActorKey contextKey = "inventory.actor"

// WithStrongConsistency returns a context that signals Store.View should use the primary database.
func WithStrongConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, ConsistencyLevelKey, StrongConsistency)
}

// WithEventualConsistency returns a context that signals Store.View may read from a replica.
//
// Example usage:
//
//	ctx = inventory.WithEventualConsistency(ctx)
//	result, err := engine.CheckAvailability(ctx, query)
func WithEventualConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, ConsistencyLevelKey, EventualConsistency)
}

// GetConsistencyLevel extracts the consistency level from the context.
// If no consistency level is set, it returns StrongConsistency.
func GetConsistencyLevel(ctx context.Context) ConsistencyLevel {
	if level, ok := ctx.Value(ConsistencyLevelKey).(ConsistencyLevel); ok {
		return level
	}
	return StrongConsistency
}

// String provides a string representation of ConsistencyLevel for logging and debugging.
func (c ConsistencyLevel) String() string {
	switch c {
	case StrongConsistency:
		return "strong"
	case EventualConsistency:
		return "eventual"
	default:
		return "unknown"
	}
}

// Actor is the acting user as supplied by the identity collaborator. The engine only records it
// in audit fields; authorization happens in the calling layer.
type Actor struct {
	ID   string
	Role string
}

// SystemActor is used when no actor was put into the context, e.g. for scheduler passes.
var SystemActor = Actor{ID: "system", Role: "system"}

// WithActor returns a context carrying the acting user.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

// ActorFrom extracts the acting user from the context, falling back to SystemActor.
func ActorFrom(ctx context.Context) Actor {
	if actor, ok := ctx.Value(ActorKey).(Actor); ok && actor.ID != "" {
		return actor
	}
	return SystemActor
}
