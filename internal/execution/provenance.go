package execution

import (
	"github.com/entityflow/entityflow/internal/entity"
)

// stitchProvenance sets attribute_source on every field of out whose
// value is structurally identical to a field carried by one of the
// prepared input copies, attributing it to that input's ecs_id.
// Fields with no matching input value are left with no provenance
// entry, i.e. "locally computed."
func stitchProvenance(out entity.Entity, inputs []entity.Entity) {
	outFields := entity.Fields(out)
fieldLoop:
	for fieldName, outVal := range outFields {
		for _, in := range inputs {
			for _, inVal := range entity.Fields(in) {
				if entity.FieldEqual(outVal, inVal) {
					entity.SetAttributeSource(out, fieldName, in.Intrinsics().EcsID.String())
					continue fieldLoop
				}
			}
		}
	}
}
