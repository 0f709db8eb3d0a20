// Package tree builds the node/edge graph rooted at an entity and
// computes the modification set between two versions of the same
// lineage.
package tree

import (
	"reflect"

	"github.com/entityflow/entityflow/internal/entity"
	"github.com/entityflow/entityflow/pkg/entityerr"
	"github.com/google/uuid"
)

// EdgeKind describes how a child is held by its parent.
type EdgeKind string

const (
	EdgeDirect      EdgeKind = "direct"
	EdgeListElement EdgeKind = "list_element"
	EdgeMapValue    EdgeKind = "map_value"
)

// Edge is one parent->child link in the tree, labeled by field name
// and, for container children, their position or key.
type Edge struct {
	FromEcsID uuid.UUID
	ToEcsID   uuid.UUID
	Field     string
	Kind      EdgeKind
	Key       string // list index (as string) or map key
}

// Node is one entity reachable from the tree's root.
type Node struct {
	EcsID  uuid.UUID
	Entity entity.Entity
}

// Tree is the node/edge graph rooted at a single entity, plus an
// ancestry map from each node's ecs_id to the path of ecs_ids from
// the root down to that node (inclusive of both ends, root first).
type Tree struct {
	RootEcsID uuid.UUID
	Nodes     map[uuid.UUID]Node
	Edges     []Edge
	Ancestry  map[uuid.UUID][]uuid.UUID
}

// Build walks root's entity-tagged fields and produces the node set,
// edge set, and ancestry map. It fails with entityerr.CyclicReference
// if a back-edge is found, and with entityerr.DetachedChild if a
// non-root node carries a root_ecs_id different from root's.
func Build(root entity.Entity) (*Tree, error) {
	rootEcsID := root.Intrinsics().EcsID
	t := &Tree{
		RootEcsID: rootEcsID,
		Nodes:     make(map[uuid.UUID]Node),
		Ancestry:  make(map[uuid.UUID][]uuid.UUID),
	}

	onStack := make(map[uuid.UUID]bool)
	var walk func(e entity.Entity, path []uuid.UUID) error
	walk = func(e entity.Entity, path []uuid.UUID) error {
		ecsID := e.Intrinsics().EcsID
		if onStack[ecsID] {
			return entityerr.CyclicReference(ecsID.String())
		}
		if e != root && e.Intrinsics().IsAttached() && e.Intrinsics().RootEcsID != rootEcsID {
			return entityerr.DetachedChild(ecsID.String(), e.Intrinsics().RootEcsID.String())
		}

		onStack[ecsID] = true
		defer delete(onStack, ecsID)

		newPath := append(append([]uuid.UUID{}, path...), ecsID)
		t.Nodes[ecsID] = Node{EcsID: ecsID, Entity: e}
		t.Ancestry[ecsID] = newPath

		children, err := childEdges(e)
		if err != nil {
			return err
		}
		for _, c := range children {
			t.Edges = append(t.Edges, Edge{
				FromEcsID: ecsID,
				ToEcsID:   c.child.Intrinsics().EcsID,
				Field:     c.field,
				Kind:      c.kind,
				Key:       c.key,
			})
			if err := walk(c.child, newPath); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(root, nil); err != nil {
		return nil, err
	}
	return t, nil
}

type childEdge struct {
	field string
	kind  EdgeKind
	key   string
	child entity.Entity
}

var entityType = reflect.TypeOf((*entity.Entity)(nil)).Elem()

func childEdges(e entity.Entity) ([]childEdge, error) {
	v := reflect.ValueOf(e)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return nil, nil
	}
	v = v.Elem()
	t := v.Type()

	var out []childEdge
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Anonymous {
			continue
		}
		tag, ok := sf.Tag.Lookup("entity")
		if !ok || tag == "" || tag == "-" {
			continue
		}
		fv := v.Field(i)
		switch fv.Kind() {
		case reflect.Ptr:
			if fv.IsNil() || !fv.Type().Implements(entityType) {
				continue
			}
			out = append(out, childEdge{field: tag, kind: EdgeDirect, child: fv.Interface().(entity.Entity)})
		case reflect.Slice:
			if fv.IsNil() || !fv.Type().Elem().Implements(entityType) {
				continue
			}
			for j := 0; j < fv.Len(); j++ {
				el := fv.Index(j)
				if el.IsNil() {
					continue
				}
				out = append(out, childEdge{
					field: tag,
					kind:  EdgeListElement,
					key:   itoa(j),
					child: el.Interface().(entity.Entity),
				})
			}
		case reflect.Map:
			if fv.IsNil() || !fv.Type().Elem().Implements(entityType) {
				continue
			}
			iter := fv.MapRange()
			for iter.Next() {
				val := iter.Value()
				if val.IsNil() {
					continue
				}
				out = append(out, childEdge{
					field: tag,
					kind:  EdgeMapValue,
					key:   keyString(iter.Key()),
					child: val.Interface().(entity.Entity),
				})
			}
		}
	}
	return out, nil
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := []byte{}
	n := i
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func keyString(v reflect.Value) string {
	if v.Kind() == reflect.String {
		return v.String()
	}
	return reflectString(v)
}

func reflectString(v reflect.Value) string {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return itoa(int(v.Int()))
	default:
		return ""
	}
}
