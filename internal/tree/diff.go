package tree

import (
	"github.com/entityflow/entityflow/internal/entity"
	"github.com/google/uuid"
)

// ModificationSet is the result of diffing an old stored tree against
// a new candidate tree for the same lineage.
type ModificationSet struct {
	Changed   []uuid.UUID // payload fields differ for a matched ecs_id
	Added     []uuid.UUID // present only in the new tree
	Removed   []uuid.UUID // present only in the old tree
	Unchanged []uuid.UUID // matched and identical
}

// Diff indexes old nodes by ecs_id; for each new node whose ecs_id
// matches, it compares entity-tagged fields by entity.FieldEqual
// (nested entities compared by ecs_id only — a structural change in a
// child is the child's own modification). Unmatched new nodes are
// added; unmatched old nodes are removed.
func Diff(old, new *Tree) ModificationSet {
	var ms ModificationSet
	if old == nil {
		for id := range new.Nodes {
			ms.Added = append(ms.Added, id)
		}
		return ms
	}
	if new == nil {
		for id := range old.Nodes {
			ms.Removed = append(ms.Removed, id)
		}
		return ms
	}

	for id, newNode := range new.Nodes {
		oldNode, ok := old.Nodes[id]
		if !ok {
			ms.Added = append(ms.Added, id)
			continue
		}
		if fieldsChanged(oldNode.Entity, newNode.Entity) {
			ms.Changed = append(ms.Changed, id)
		} else {
			ms.Unchanged = append(ms.Unchanged, id)
		}
	}
	for id := range old.Nodes {
		if _, ok := new.Nodes[id]; !ok {
			ms.Removed = append(ms.Removed, id)
		}
	}
	return ms
}

func fieldsChanged(a, b entity.Entity) bool {
	af := entity.Fields(a)
	bf := entity.Fields(b)
	if len(af) != len(bf) {
		return true
	}
	for k, av := range af {
		bv, ok := bf[k]
		if !ok {
			return true
		}
		if !entity.FieldEqual(av, bv) {
			return true
		}
	}
	return false
}

// GreedyPath computes the set of ecs_ids that must fork when
// versioning: every changed node, plus every ancestor on the path
// from a changed node to the root (a parent must fork because a
// child's identity changed). Nodes off any changed path keep their
// ecs_id.
func GreedyPath(t *Tree, ms ModificationSet) map[uuid.UUID]bool {
	fork := make(map[uuid.UUID]bool)
	for _, id := range ms.Changed {
		for _, ancestor := range t.Ancestry[id] {
			fork[ancestor] = true
		}
	}
	for _, id := range ms.Added {
		for _, ancestor := range t.Ancestry[id] {
			fork[ancestor] = true
		}
	}
	return fork
}
