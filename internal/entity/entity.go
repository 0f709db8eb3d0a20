// Package entity defines the identity and record model: the
// intrinsic fields every entity carries, the operations that mutate
// identity (allocation, forking), and the deep-copy visitor that
// implements copy-on-read isolation and versioning.
package entity

import (
	"reflect"
	"time"

	"github.com/google/uuid"
)

// Intrinsics holds the fields every entity carries regardless of its
// user-defined shape. Direct writes to these fields from outside this
// package are discouraged; use the operations below instead.
type Intrinsics struct {
	EcsID          uuid.UUID
	LiveID         uuid.UUID
	LineageID      uuid.UUID
	RootEcsID      uuid.UUID
	RootLiveID     uuid.UUID
	CreatedAt      time.Time
	ForkedAt       time.Time
	PreviousEcsID  uuid.UUID
	FromStorage    bool
	AttributeSource map[string]any
}

// IsRoot reports whether this instance is the root of its own tree.
func (in *Intrinsics) IsRoot() bool {
	return in.EcsID == in.RootEcsID && in.LiveID == in.RootLiveID
}

// IsAttached reports whether this instance belongs to a registered
// tree (has a non-nil root identity).
func (in *Intrinsics) IsAttached() bool {
	return in.RootEcsID != uuid.Nil
}

// Entity is implemented by every record type in the system. Consumer
// types satisfy it by embedding Base.
type Entity interface {
	Intrinsics() *Intrinsics
}

// Base is embedded by consumer-defined entity types to acquire the
// intrinsic fields and satisfy the Entity interface. Consumer fields
// that should participate in tree-walking, diffing, copying, and
// provenance must be exported and tagged `entity:"name"`.
type Base struct {
	intrinsics Intrinsics
}

// Intrinsics returns a pointer to this entity's intrinsic fields.
func (b *Base) Intrinsics() *Intrinsics {
	return &b.intrinsics
}

// New allocates fresh ecs_id/live_id/lineage_id for a newly
// constructed, as-yet-unattached entity. Callers embed Base and then
// call New on it before populating user-defined fields.
func New(b *Base) {
	id := uuid.New()
	b.intrinsics = Intrinsics{
		EcsID:     id,
		LiveID:    uuid.New(),
		LineageID: uuid.New(),
		CreatedAt: time.Now(),
	}
}

// Fields reflects over e's exported, entity-tagged fields and returns
// their current values keyed by tag name. Used by the tree builder,
// diff, and provenance stitching.
func Fields(e Entity) map[string]any {
	v := reflect.ValueOf(e)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return nil
	}
	v = v.Elem()
	return fieldsOf(v)
}

func fieldsOf(v reflect.Value) map[string]any {
	t := v.Type()
	out := make(map[string]any)
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Anonymous {
			continue
		}
		tag, ok := sf.Tag.Lookup("entity")
		if !ok || tag == "" || tag == "-" {
			continue
		}
		out[tag] = v.Field(i).Interface()
	}
	return out
}

// FieldNames returns the sorted-by-declaration set of entity-tagged
// field names for e's concrete type.
func FieldNames(e Entity) []string {
	v := reflect.ValueOf(e)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return nil
	}
	v = v.Elem()
	t := v.Type()
	var names []string
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Anonymous {
			continue
		}
		tag, ok := sf.Tag.Lookup("entity")
		if !ok || tag == "" || tag == "-" {
			continue
		}
		names = append(names, tag)
	}
	return names
}

// TypeName returns the consumer type's name, used by the registry's
// by_type index.
func TypeName(e Entity) string {
	v := reflect.ValueOf(e)
	for v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	return v.Type().Name()
}

// SetAttributeSource records, for field name, the ecs_id the value was
// borrowed from (or nil for a locally computed value, or a nested
// []any/map[string]any for per-element container provenance).
func SetAttributeSource(e Entity, field string, source any) {
	in := e.Intrinsics()
	if in.AttributeSource == nil {
		in.AttributeSource = make(map[string]any)
	}
	in.AttributeSource[field] = source
}

// BorrowField copies the value of sourceField on src into targetField
// on dst and records provenance pointing at src's ecs_id.
func BorrowField(src, dst Entity, sourceField, targetField string) bool {
	sv := reflect.ValueOf(src)
	dv := reflect.ValueOf(dst)
	if sv.Kind() != reflect.Ptr || dv.Kind() != reflect.Ptr {
		return false
	}
	sv, dv = sv.Elem(), dv.Elem()

	srcField, ok := findTaggedField(sv, sourceField)
	if !ok {
		return false
	}
	dstField, ok := findTaggedField(dv, targetField)
	if !ok || !dstField.CanSet() {
		return false
	}
	if !srcField.Type().AssignableTo(dstField.Type()) {
		return false
	}
	dstField.Set(srcField)
	SetAttributeSource(dst, targetField, src.Intrinsics().EcsID.String())
	return true
}

func findTaggedField(v reflect.Value, tagName string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Anonymous {
			continue
		}
		tag, ok := sf.Tag.Lookup("entity")
		if ok && tag == tagName {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}
