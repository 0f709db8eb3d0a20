package httpapi

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/gorilla/mux"
)

func (h *handler) listCallables(w http.ResponseWriter, r *http.Request) {
	names := h.callables.List()
	sort.Strings(names)
	writeJSON(w, http.StatusOK, map[string]any{"callables": names})
}

func (h *handler) getCallable(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	m, ok := h.callables.Metadata(name)
	if !ok {
		writeError(w, http.StatusNotFound, "callable not found")
		return
	}

	paramTypes := make([]string, len(m.ParamTypes))
	for i, t := range m.ParamTypes {
		paramTypes[i] = t.String()
	}
	returnTypes := make([]string, len(m.ReturnTypes))
	for i, t := range m.ReturnTypes {
		returnTypes[i] = t.String()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"name":                  m.Name,
		"param_types":           paramTypes,
		"return_types":          returnTypes,
		"uses_config_entity":    m.UsesConfigEntity,
		"is_async":              m.IsAsync,
		"output_pattern":        m.OutputPattern,
		"expected_output_count": m.ExpectedOutputCount,
		"supports_unpacking":    m.SupportsUnpacking,
		"force_unpack":          m.ForceUnpack,
	})
}

// invokeRequest is the JSON body POST /callables/{name}/invoke
// expects: a flat list of arguments, each either a literal JSON value
// (decoded as string/float64/bool/map/slice) or an "@..." address
// string the execution engine resolves against the registry before
// dispatch.
type invokeRequest struct {
	Args []any `json:"args"`
}

func (h *handler) invokeCallable(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if _, ok := h.callables.Metadata(name); !ok {
		writeError(w, http.StatusNotFound, "callable not found")
		return
	}

	var req invokeRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err.Error() != "EOF" {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}
	}

	result, err := h.engine.Execute(r.Context(), name, req.Args...)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	outputs := make([]map[string]any, len(result.Outputs))
	for i, out := range result.Outputs {
		outputs[i] = entityJSON(out)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"outputs":      outputs,
		"execution_id": result.Record.Intrinsics().EcsID,
	})
}
