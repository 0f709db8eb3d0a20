package execution

import (
	"reflect"

	"github.com/entityflow/entityflow/internal/callable"
	"github.com/entityflow/entityflow/internal/entity"
	"github.com/entityflow/entityflow/internal/registry"
)

// Wrapper is the synthesized entity used whenever a return value isn't
// itself an entity, or is a list/map whose pattern does not unpack by
// default: "every value leaving the engine is an entity."
type Wrapper struct {
	entity.Base

	Payload any `entity:"payload"`
}

func newWrapper(payload any) *Wrapper {
	w := &Wrapper{Payload: payload}
	entity.New(&w.Base)
	return w
}

// siblingCarrier is implemented by any tuple-output entity type that
// wants cross-links to its siblings recorded; entity.Entity alone is
// enough to register and return a tuple member, so this is optional.
type siblingCarrier interface {
	SetSiblingOutputs(ids []string)
}

// shapeOutputs registers every raw return value as one or more root
// entities per m.OutputPattern and m.ForceUnpack, returning the final
// list of root entities the call produced.
func shapeOutputs(reg *registry.Registry, m *callable.Metadata, raw []any) ([]entity.Entity, error) {
	switch m.OutputPattern {
	case OutputVoidPattern:
		return nil, nil

	case SinglePattern:
		e, ok := raw[0].(entity.Entity)
		if !ok || e == nil {
			return []entity.Entity{newWrapper(raw[0])}, nil
		}
		return []entity.Entity{e}, nil

	case TuplePattern:
		outs := make([]entity.Entity, 0, len(raw))
		ids := make([]string, 0, len(raw))
		for _, r := range raw {
			if e, ok := r.(entity.Entity); ok && e != nil {
				outs = append(outs, e)
				ids = append(ids, e.Intrinsics().EcsID.String())
			} else {
				outs = append(outs, newWrapper(r))
			}
		}
		for _, o := range outs {
			if sc, ok := o.(siblingCarrier); ok {
				others := make([]string, 0, len(ids)-1)
				for _, id := range ids {
					if id != o.Intrinsics().EcsID.String() {
						others = append(others, id)
					}
				}
				sc.SetSiblingOutputs(others)
			}
		}
		return outs, nil

	case ListPattern, MapPattern:
		if m.ForceUnpack && m.SupportsUnpacking {
			return unpackContainer(raw[0])
		}
		return []entity.Entity{newWrapper(raw[0])}, nil

	default: // wrapper, nested/union and anything else non-entity
		return []entity.Entity{newWrapper(raw[0])}, nil
	}
}

func unpackContainer(container any) ([]entity.Entity, error) {
	v := reflect.ValueOf(container)
	var out []entity.Entity
	switch v.Kind() {
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			if e, ok := v.Index(i).Interface().(entity.Entity); ok {
				out = append(out, e)
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if e, ok := iter.Value().Interface().(entity.Entity); ok {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

// Output pattern constants mirrored here under execution-local names
// to avoid a second import alias at every call site; they map 1:1
// onto callable.OutputPattern values.
const (
	SinglePattern    = callable.OutputSingle
	TuplePattern     = callable.OutputTuple
	ListPattern      = callable.OutputList
	MapPattern       = callable.OutputMap
	OutputVoidPattern = callable.OutputVoid
)
