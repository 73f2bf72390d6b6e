package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/staff-access/internal/core/events"
)

// Action names recorded for membership and permission mutations.
const (
	ActionAssign      = "team.assign"
	ActionUpdateRole  = "team.update_role"
	ActionRemove      = "team.remove"
	ActionRecalculate = "permissions.recalculate"
)

// Record is one audit entry. Before/after counts give reviewers a cheap
// signal for how much a mutation widened or narrowed access.
type Record struct {
	ID                    string    `json:"id"`
	Actor                 int64     `json:"actor"`
	Action                string    `json:"action"`
	TargetUserID          int64     `json:"target_user_id"`
	TeamID                string    `json:"team_id,omitempty"`
	Role                  string    `json:"role,omitempty"`
	BeforePermissionCount int       `json:"before_permission_count"`
	AfterPermissionCount  int       `json:"after_permission_count"`
	Timestamp             time.Time `json:"timestamp"`
}

// Emitter records mutations fire-and-forget. Implementations must never
// surface failures to the mutation path.
type Emitter interface {
	Emit(ctx context.Context, record Record)
}

// Sink persists audit records.
type Sink interface {
	Store(ctx context.Context, record Record) error
}

// BusEmitter publishes each record on the in-process event bus; a sink
// subscriber persists it off the request path.
type BusEmitter struct {
	bus    *events.EventBus
	logger *slog.Logger
}

func NewBusEmitter(bus *events.EventBus, logger *slog.Logger) *BusEmitter {
	return &BusEmitter{bus: bus, logger: logger}
}

func (e *BusEmitter) Emit(ctx context.Context, record Record) {
	event := events.NewAccessChangeEvent(
		eventTypeFor(record.Action),
		record.Actor,
		record.TargetUserID,
		record.TeamID,
		record.Role,
		record.BeforePermissionCount,
		record.AfterPermissionCount,
	)
	record.ID = event.EventID()
	if record.Timestamp.IsZero() {
		record.Timestamp = event.OccurredAt()
	}

	event.Data["record"] = record

	if err := e.bus.Publish(ctx, event); err != nil {
		e.logger.Error("audit publish failed", "action", record.Action, "target_user_id", record.TargetUserID, "error", err)
	}
}

func eventTypeFor(action string) string {
	switch action {
	case ActionAssign:
		return events.EventTypeTeamAssigned
	case ActionUpdateRole:
		return events.EventTypeTeamRoleChanged
	case ActionRemove:
		return events.EventTypeTeamRemoved
	default:
		return events.EventTypePermissionsRepaired
	}
}

// RegisterSink subscribes a sink to every access event type. Store errors
// are logged by the bus and dropped, keeping emission fire-and-forget.
func RegisterSink(bus *events.EventBus, sink Sink) {
	handler := func(ctx context.Context, event events.Event) error {
		change, ok := event.(*events.AccessChangeEvent)
		if !ok {
			return nil
		}
		record, ok := change.Data["record"].(Record)
		if !ok {
			return nil
		}
		return sink.Store(ctx, record)
	}

	for _, eventType := range []string{
		events.EventTypeTeamAssigned,
		events.EventTypeTeamRoleChanged,
		events.EventTypeTeamRemoved,
		events.EventTypePermissionsRepaired,
	} {
		bus.Subscribe(eventType, handler)
	}
}
