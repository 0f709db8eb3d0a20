package execution

import (
	"github.com/entityflow/entityflow/internal/entity"
	"github.com/google/uuid"
)

// classify implements spec.md's semantic classification: an output
// whose live_id doesn't match any input copy is a creation; one that
// matches but whose fields are unchanged is a pass-through; one that
// matches with changed fields is a mutation.
func classify(out entity.Entity, identityMap map[uuid.UUID]entity.CopyRecord, originals []entity.Entity) Classification {
	cp, ok := identityMap[out.Intrinsics().LiveID]
	if !ok {
		return ClassificationCreation
	}
	for _, orig := range originals {
		if orig.Intrinsics().EcsID != cp.OriginalEcsID {
			continue
		}
		if fieldsEqual(out, orig) {
			return ClassificationPassThrough
		}
		return ClassificationMutation
	}
	return ClassificationMutation
}

func fieldsEqual(a, b entity.Entity) bool {
	af, bf := entity.Fields(a), entity.Fields(b)
	if len(af) != len(bf) {
		return false
	}
	for k, av := range af {
		bv, ok := bf[k]
		if !ok || !entity.FieldEqual(av, bv) {
			return false
		}
	}
	return true
}
