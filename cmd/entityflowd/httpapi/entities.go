package httpapi

import (
	"net/http"

	"github.com/entityflow/entityflow/internal/entity"
	"github.com/entityflow/entityflow/internal/tree"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// entityJSON renders an entity.Entity as its intrinsic identity plus
// its entity-tagged field values, rather than its Go struct shape
// directly — the wire representation stays keyed by the `entity:"..."`
// tag names consumers chose, the way the address resolver and tree
// diff already do.
func entityJSON(e entity.Entity) map[string]any {
	in := e.Intrinsics()
	return map[string]any{
		"ecs_id":           in.EcsID,
		"live_id":          in.LiveID,
		"lineage_id":       in.LineageID,
		"root_ecs_id":      in.RootEcsID,
		"root_live_id":     in.RootLiveID,
		"created_at":       in.CreatedAt,
		"previous_ecs_id":  in.PreviousEcsID,
		"attribute_source": in.AttributeSource,
		"type":             entity.TypeName(e),
		"fields":           entity.Fields(e),
	}
}

func (h *handler) getEntity(w http.ResponseWriter, r *http.Request) {
	ecsID, err := uuid.Parse(mux.Vars(r)["ecsID"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed ecs_id")
		return
	}

	e, err := h.registry.FetchByEcsID(ecsID)
	if err != nil {
		writeError(w, http.StatusNotFound, "entity not found")
		return
	}

	writeJSON(w, http.StatusOK, entityJSON(e))
}

func (h *handler) getEntityTree(w http.ResponseWriter, r *http.Request) {
	ecsID, err := uuid.Parse(mux.Vars(r)["ecsID"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed ecs_id")
		return
	}

	t, err := h.registry.FetchTreeByRoot(ecsID)
	if err != nil {
		writeError(w, http.StatusNotFound, "entity tree not found")
		return
	}

	writeJSON(w, http.StatusOK, treeJSON(t))
}

func treeJSON(t *tree.Tree) map[string]any {
	nodes := make(map[string]any, len(t.Nodes))
	for ecsID, node := range t.Nodes {
		nodes[ecsID.String()] = entityJSON(node.Entity)
	}

	edges := make([]map[string]any, 0, len(t.Edges))
	for _, e := range t.Edges {
		edges = append(edges, map[string]any{
			"from_ecs_id": e.FromEcsID,
			"to_ecs_id":   e.ToEcsID,
			"field":       e.Field,
			"kind":        e.Kind,
			"key":         e.Key,
		})
	}

	ancestry := make(map[string][]uuid.UUID, len(t.Ancestry))
	for ecsID, chain := range t.Ancestry {
		ancestry[ecsID.String()] = chain
	}

	return map[string]any{
		"root_ecs_id": t.RootEcsID,
		"nodes":       nodes,
		"edges":       edges,
		"ancestry":    ancestry,
	}
}
