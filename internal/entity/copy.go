package entity

import (
	"reflect"
	"time"

	"github.com/google/uuid"
)

// DeepCopy walks e and every entity reachable through its
// entity-tagged fields, producing an independent copy. Every copy
// receives a fresh live_id. When forkIdentity is true, every node
// additionally receives a fresh ecs_id, its previous_ecs_id is set to
// the old ecs_id, forked_at is stamped, and lineage_id is preserved —
// this is the versioning form. When forkIdentity is false, ecs_id is
// preserved unchanged — this is copy-on-read isolation.
//
// identityMap, if non-nil, is populated with an entry for every node
// copied: new live_id -> (old live_id, old ecs_id). The execution
// engine uses this to classify returned outputs against the copies it
// handed to a callable.
func DeepCopy(e Entity, forkIdentity bool, identityMap map[uuid.UUID]CopyRecord) Entity {
	if e == nil {
		return nil
	}
	return deepCopyValue(reflect.ValueOf(e), forkIdentity, identityMap).Interface().(Entity)
}

// CopyRecord maps a fresh copy's live_id back to the original instance
// it was copied from.
type CopyRecord struct {
	OriginalLiveID uuid.UUID
	OriginalEcsID  uuid.UUID
}

var entityType = reflect.TypeOf((*Entity)(nil)).Elem()

func deepCopyValue(v reflect.Value, forkIdentity bool, identityMap map[uuid.UUID]CopyRecord) reflect.Value {
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return v
	}
	srcStruct := v.Elem()
	dstPtr := reflect.New(srcStruct.Type())
	dstStruct := dstPtr.Elem()

	base, ok := findBase(srcStruct)
	if !ok {
		// Not an entity-shaped value; shallow copy is as good as it gets.
		dstStruct.Set(srcStruct)
		return dstPtr
	}
	srcEntity := v.Interface().(Entity)
	srcIn := srcEntity.Intrinsics()

	copyStructFields(srcStruct, dstStruct, forkIdentity, identityMap)

	dstEntity := dstPtr.Interface().(Entity)
	dstIn := dstEntity.Intrinsics()
	*dstIn = *srcIn
	dstIn.LiveID = uuid.New()
	if forkIdentity {
		dstIn.PreviousEcsID = srcIn.EcsID
		dstIn.EcsID = uuid.New()
		dstIn.ForkedAt = time.Now()
	}
	if dstIn.AttributeSource != nil {
		cloned := make(map[string]any, len(dstIn.AttributeSource))
		for k, val := range dstIn.AttributeSource {
			cloned[k] = val
		}
		dstIn.AttributeSource = cloned
	}

	if identityMap != nil {
		identityMap[dstIn.LiveID] = CopyRecord{
			OriginalLiveID: srcIn.LiveID,
			OriginalEcsID:  srcIn.EcsID,
		}
	}

	_ = base
	return dstPtr
}

// findBase locates the embedded entity.Base within a struct value so
// intrinsics can be located without the caller naming the consumer
// type.
func findBase(v reflect.Value) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Anonymous && sf.Type == reflect.TypeOf(Base{}) {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func copyStructFields(src, dst reflect.Value, forkIdentity bool, identityMap map[uuid.UUID]CopyRecord) {
	t := src.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Anonymous {
			continue
		}
		if _, ok := sf.Tag.Lookup("entity"); !ok {
			continue
		}
		srcField := src.Field(i)
		dstField := dst.Field(i)
		copyFieldValue(srcField, dstField, forkIdentity, identityMap)
	}
}

func copyFieldValue(src, dst reflect.Value, forkIdentity bool, identityMap map[uuid.UUID]CopyRecord) {
	switch src.Kind() {
	case reflect.Ptr:
		if src.IsNil() {
			return
		}
		if src.Type().Implements(entityType) {
			dst.Set(deepCopyValue(src, forkIdentity, identityMap))
			return
		}
		elem := reflect.New(src.Type().Elem())
		copyGeneric(src.Elem(), elem.Elem())
		dst.Set(elem)
	case reflect.Slice:
		if src.IsNil() {
			return
		}
		out := reflect.MakeSlice(src.Type(), src.Len(), src.Len())
		for i := 0; i < src.Len(); i++ {
			el := src.Index(i)
			if el.Kind() == reflect.Ptr && el.Type().Implements(entityType) && !el.IsNil() {
				out.Index(i).Set(deepCopyValue(el, forkIdentity, identityMap))
			} else {
				copyGeneric(el, out.Index(i))
			}
		}
		dst.Set(out)
	case reflect.Map:
		if src.IsNil() {
			return
		}
		out := reflect.MakeMapWithSize(src.Type(), src.Len())
		iter := src.MapRange()
		for iter.Next() {
			k := iter.Key()
			val := iter.Value()
			nv := reflect.New(val.Type()).Elem()
			if val.Kind() == reflect.Ptr && val.Type().Implements(entityType) && !val.IsNil() {
				nv.Set(deepCopyValue(val, forkIdentity, identityMap))
			} else {
				copyGeneric(val, nv)
			}
			out.SetMapIndex(k, nv)
		}
		dst.Set(out)
	default:
		dst.Set(src)
	}
}

// copyGeneric deep-copies a plain (non-entity) value: nested
// slices/maps/pointers of primitives, and scalars. Structs are copied
// by value, so slices or maps inside a struct are shared with src.
func copyGeneric(src, dst reflect.Value) {
	switch src.Kind() {
	case reflect.Slice:
		if src.IsNil() {
			return
		}
		out := reflect.MakeSlice(src.Type(), src.Len(), src.Len())
		for i := 0; i < src.Len(); i++ {
			copyGeneric(src.Index(i), out.Index(i))
		}
		dst.Set(out)
	case reflect.Map:
		if src.IsNil() {
			return
		}
		out := reflect.MakeMapWithSize(src.Type(), src.Len())
		iter := src.MapRange()
		for iter.Next() {
			nv := reflect.New(src.Type().Elem()).Elem()
			copyGeneric(iter.Value(), nv)
			out.SetMapIndex(iter.Key(), nv)
		}
		dst.Set(out)
	case reflect.Ptr:
		if src.IsNil() {
			return
		}
		out := reflect.New(src.Type().Elem())
		copyGeneric(src.Elem(), out.Elem())
		dst.Set(out)
	case reflect.Struct:
		dst.Set(src)
	default:
		dst.Set(src)
	}
}
