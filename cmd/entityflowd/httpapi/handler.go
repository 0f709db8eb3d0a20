// Package httpapi is the read-only introspection HTTP/WS surface
// spec.md explicitly leaves to consumers ("no CLI, wire protocol, or
// on-disk format is specified by the core"). It is kept outside
// internal/ so that boundary is visible: nothing here is required to
// use the runtime, it is one example consumer among many. Routing
// follows the teacher's cmd/gateway (gorilla/mux router, .Methods(),
// router.Use middleware chain) adapted to this runtime's own
// resources.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/entityflow/entityflow/internal/callable"
	"github.com/entityflow/entityflow/internal/event"
	"github.com/entityflow/entityflow/internal/execution"
	"github.com/entityflow/entityflow/internal/registry"
	"github.com/entityflow/entityflow/pkg/logging"
	"github.com/entityflow/entityflow/pkg/metrics"
	"github.com/gorilla/mux"
)

// handler bundles every runtime resource this surface is read-only
// (and, for invoke, write-through) access to.
type handler struct {
	registry  *registry.Registry
	callables *callable.Registry
	engine    *execution.Engine
	bus       *event.Bus
	eventLog  *event.Log
	log       *logging.Logger
}

// NewRouter builds the mux.Router exposing the health, metrics,
// entity, callable, execution, and event-stream routes registered
// below, wrapped in logging, recovery, and Prometheus instrumentation.
func NewRouter(reg *registry.Registry, callables *callable.Registry, eng *execution.Engine, bus *event.Bus, eventLog *event.Log) http.Handler {
	h := &handler{
		registry:  reg,
		callables: callables,
		engine:    eng,
		bus:       bus,
		eventLog:  eventLog,
		log:       logging.NewFromEnv("httpapi"),
	}

	r := mux.NewRouter()
	r.Use(recoveryMiddleware(h.log))
	r.Use(loggingMiddleware(h.log))

	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)

	r.HandleFunc("/entities/{ecsID}", h.getEntity).Methods(http.MethodGet)
	r.HandleFunc("/entities/{ecsID}/tree", h.getEntityTree).Methods(http.MethodGet)

	r.HandleFunc("/callables", h.listCallables).Methods(http.MethodGet)
	r.HandleFunc("/callables/{name}", h.getCallable).Methods(http.MethodGet)
	r.HandleFunc("/callables/{name}/invoke", h.invokeCallable).Methods(http.MethodPost)

	r.HandleFunc("/executions/{id}", h.getExecution).Methods(http.MethodGet)

	r.HandleFunc("/events/stream", h.streamEvents)

	return metrics.InstrumentHandler(r)
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
