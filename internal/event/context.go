package event

import (
	"context"

	"github.com/entityflow/entityflow/pkg/logging"
	"github.com/entityflow/entityflow/pkg/metrics"
)

// scopeKey is logging.ScopeKey, so pkg/logging's WithContext finds the
// active scope node and tags log lines with its LogFields.
var scopeKey = logging.ScopeKey

// scopeNode is an immutable linked-list cell: one entry per active
// scope, pointing at its enclosing parent. Context values are
// immutable by design, so "popping" never mutates a node in place —
// it produces a context carrying the parent node instead. The stack
// therefore lives entirely in context.Context values, never in a
// package-level variable, so it is naturally isolated per goroutine
// and per call chain.
type scopeNode struct {
	event  Event
	parent *scopeNode
	depth  int
}

// LogFields satisfies pkg/logging.ScopeFields without pkg/logging
// needing to import this package.
func (n *scopeNode) LogFields() map[string]any {
	if n == nil {
		return nil
	}
	return map[string]any{
		"event_id":   n.event.ID.String(),
		"event_kind": string(n.event.Kind),
		"lineage_id": n.event.LineageID.String(),
		"root_id":    n.event.RootID.String(),
	}
}

// PushContext returns a context with e pushed as the new top-of-stack
// scope. Callers reassign their local ctx variable to the result; the
// stack's isolation comes entirely from context.Context's value
// semantics, not from any shared mutable state.
func PushContext(ctx context.Context, e Event) context.Context {
	parent, _ := ctx.Value(scopeKey).(*scopeNode)
	depth := 1
	if parent != nil {
		depth = parent.depth + 1
	}
	metrics.RecordContextStackDepth(depth)
	return context.WithValue(ctx, scopeKey, &scopeNode{event: e, parent: parent, depth: depth})
}

// PopContext returns a context with the top-of-stack scope removed,
// exposing whatever scope was beneath it (or none).
func PopContext(ctx context.Context) context.Context {
	node, ok := ctx.Value(scopeKey).(*scopeNode)
	if !ok || node == nil {
		return ctx
	}
	metrics.RecordContextStackDepth(node.depth - 1)
	return context.WithValue(ctx, scopeKey, node.parent)
}

// CurrentParent returns the event at the top of the scope stack, if
// any is active on ctx.
func CurrentParent(ctx context.Context) (Event, bool) {
	node, ok := ctx.Value(scopeKey).(*scopeNode)
	if !ok || node == nil {
		return Event{}, false
	}
	return node.event, true
}
