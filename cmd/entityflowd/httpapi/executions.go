package httpapi

import (
	"net/http"

	"github.com/entityflow/entityflow/internal/execution"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

func (h *handler) getExecution(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed execution id")
		return
	}

	e, err := h.registry.FetchByEcsID(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "execution record not found")
		return
	}

	rec, ok := e.(*execution.Record)
	if !ok {
		writeError(w, http.StatusNotFound, "entity is not an execution record")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ecs_id":            rec.Intrinsics().EcsID,
		"function_name":     rec.FunctionName,
		"strategy":          rec.Strategy,
		"input_identities":  rec.InputIdentities,
		"output_identities": rec.OutputIdentities,
		"classifications":   rec.Classifications,
		"duration_ms":       rec.DurationMS,
		"success":           rec.Success,
		"error_kind":        rec.ErrorKind,
		"error_message":     rec.ErrorMessage,
	})
}
