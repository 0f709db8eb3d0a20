package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/entityflow/entityflow/internal/event"
	"github.com/gorilla/websocket"
)

// upgrader has no in-pack gorilla/websocket usage to ground against;
// CheckOrigin is left permissive since this surface is read-only
// introspection, not a privileged control channel.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// eventJSON renders an Event carrying only identifiers and metadata,
// never the entities themselves, matching spec.md's "events carry
// only identifiers".
func eventJSON(e event.Event) map[string]any {
	return map[string]any{
		"id":           e.ID,
		"kind":         e.Kind,
		"phase":        e.Phase,
		"subject_type": e.SubjectType,
		"subject_id":   e.SubjectID,
		"actor_id":     e.ActorID,
		"context_ids":  e.ContextIDs,
		"timestamp":    e.Timestamp,
		"lineage_id":   e.LineageID,
		"parent_id":    e.ParentID,
		"root_id":      e.RootID,
		"metadata":     e.Metadata,
		"duration_ms":  e.DurationMS,
	}
}

// streamEvents upgrades to a websocket connection and tails every
// event the bus emits for the life of the connection. There is no
// replay of history: a client that wants the entity-level audit trail
// already has /entities/{ecsID}/tree and /executions/{id}.
func (h *handler) streamEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub := h.bus.Subscribe(event.GlobKind("*"), func(_ context.Context, e event.Event) error {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(eventJSON(e))
	})
	defer sub.Unsubscribe()

	// Block until the client disconnects. Reads are only used to
	// detect that close; this surface never accepts client commands.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}
