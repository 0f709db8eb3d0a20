package entity

import "reflect"

// FieldEqual compares two field values the way the tree differ does:
// nested entities are compared by ecs_id only (a structural change in
// a child is the child's own modification, not this field's), and
// everything else is compared by deep value equality.
func FieldEqual(a, b any) bool {
	av := reflect.ValueOf(a)
	bv := reflect.ValueOf(b)
	return fieldValueEqual(av, bv)
}

func fieldValueEqual(av, bv reflect.Value) bool {
	if !av.IsValid() || !bv.IsValid() {
		return av.IsValid() == bv.IsValid()
	}
	if av.Type() != bv.Type() {
		return false
	}

	switch av.Kind() {
	case reflect.Ptr:
		if av.IsNil() || bv.IsNil() {
			return av.IsNil() == bv.IsNil()
		}
		if av.Type().Implements(entityType) {
			ae := av.Interface().(Entity)
			be := bv.Interface().(Entity)
			return ae.Intrinsics().EcsID == be.Intrinsics().EcsID
		}
		return fieldValueEqual(av.Elem(), bv.Elem())
	case reflect.Slice:
		if av.IsNil() != bv.IsNil() {
			return false
		}
		if av.Len() != bv.Len() {
			return false
		}
		for i := 0; i < av.Len(); i++ {
			if !fieldValueEqual(av.Index(i), bv.Index(i)) {
				return false
			}
		}
		return true
	case reflect.Map:
		if av.IsNil() != bv.IsNil() {
			return false
		}
		if av.Len() != bv.Len() {
			return false
		}
		iter := av.MapRange()
		for iter.Next() {
			k := iter.Key()
			bval := bv.MapIndex(k)
			if !bval.IsValid() {
				return false
			}
			if !fieldValueEqual(iter.Value(), bval) {
				return false
			}
		}
		return true
	case reflect.Struct:
		return reflect.DeepEqual(av.Interface(), bv.Interface())
	default:
		return av.Interface() == bv.Interface()
	}
}
