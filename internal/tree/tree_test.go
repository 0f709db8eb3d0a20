package tree

import (
	"testing"

	"github.com/entityflow/entityflow/internal/entity"
	"github.com/entityflow/entityflow/pkg/entityerr"
	"github.com/google/uuid"
)

type leaf struct {
	entity.Base
	Value int `entity:"value"`
}

func newLeaf(v int) *leaf {
	l := &leaf{Value: v}
	entity.New(&l.Base)
	return l
}

type branch struct {
	entity.Base
	Name     string           `entity:"name"`
	Child    *leaf            `entity:"child"`
	Children []*leaf          `entity:"children"`
	Tags     map[string]*leaf `entity:"tags"`
	Next     *branch          `entity:"next"`
}

func newBranch(name string) *branch {
	b := &branch{Name: name}
	entity.New(&b.Base)
	return b
}

func TestBuild_SimpleTree(t *testing.T) {
	c1 := newLeaf(1)
	c2 := newLeaf(2)
	root := newBranch("root")
	root.Child = c1
	root.Children = []*leaf{c2}

	tr, err := Build(root)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(tr.Nodes) != 3 {
		t.Fatalf("Nodes = %d, want 3", len(tr.Nodes))
	}
	if len(tr.Edges) != 2 {
		t.Fatalf("Edges = %d, want 2", len(tr.Edges))
	}
	path := tr.Ancestry[c1.Intrinsics().EcsID]
	if len(path) != 2 || path[len(path)-1] != c1.Intrinsics().EcsID {
		t.Errorf("ancestry path for child = %v", path)
	}
}

func TestBuild_CyclicReference(t *testing.T) {
	a := newBranch("a")
	b := newBranch("b")
	a.Next = b
	b.Next = a

	_, err := Build(a)
	if err == nil {
		t.Fatal("Build() expected CyclicReference error, got nil")
	}
	if !entityerr.Is(err, entityerr.CodeCyclicReference) {
		t.Errorf("Build() error = %v, want CyclicReference", err)
	}
}

func TestBuild_DetachedChild(t *testing.T) {
	root := newBranch("root")
	child := newLeaf(1)
	// simulate a stale root_ecs_id on the child as if it used to belong
	// to a different tree
	child.Intrinsics().RootEcsID = newBranch("other-root").Intrinsics().EcsID
	child.Intrinsics().RootLiveID = child.Intrinsics().RootEcsID
	root.Child = child

	_, err := Build(root)
	if err == nil {
		t.Fatal("Build() expected DetachedChild error, got nil")
	}
	if !entityerr.Is(err, entityerr.CodeDetachedChild) {
		t.Errorf("Build() error = %v, want DetachedChild", err)
	}
}

func TestDiff_ChangedAddedRemovedUnchanged(t *testing.T) {
	c1 := newLeaf(1)
	c2 := newLeaf(2)
	root := newBranch("root")
	root.Child = c1
	root.Children = []*leaf{c2}
	oldTree, err := Build(root)
	if err != nil {
		t.Fatalf("Build(old) error = %v", err)
	}

	// New candidate: c1's value changes, c2 removed, a new leaf added.
	c1Changed := newLeaf(99)
	c1Changed.Intrinsics().EcsID = c1.Intrinsics().EcsID
	c3 := newLeaf(3)
	newRoot := newBranch("root")
	newRoot.Intrinsics().EcsID = root.Intrinsics().EcsID
	newRoot.Child = c1Changed
	newRoot.Children = []*leaf{c3}

	newTree, err := Build(newRoot)
	if err != nil {
		t.Fatalf("Build(new) error = %v", err)
	}

	// root's own "children" field now holds c3 instead of c2, so root is
	// changed alongside c1 and no node is unchanged.
	ms := Diff(oldTree, newTree)
	changed := map[uuid.UUID]bool{}
	for _, id := range ms.Changed {
		changed[id] = true
	}
	if len(ms.Changed) != 2 || !changed[c1.Intrinsics().EcsID] || !changed[root.Intrinsics().EcsID] {
		t.Errorf("Changed = %v, want [%v %v]", ms.Changed, c1.Intrinsics().EcsID, root.Intrinsics().EcsID)
	}
	if len(ms.Added) != 1 || ms.Added[0] != c3.Intrinsics().EcsID {
		t.Errorf("Added = %v, want [%v]", ms.Added, c3.Intrinsics().EcsID)
	}
	if len(ms.Removed) != 1 || ms.Removed[0] != c2.Intrinsics().EcsID {
		t.Errorf("Removed = %v, want [%v]", ms.Removed, c2.Intrinsics().EcsID)
	}
	if len(ms.Unchanged) != 0 {
		t.Errorf("Unchanged = %v, want none", ms.Unchanged)
	}
}

func TestGreedyPath_IncludesAncestors(t *testing.T) {
	c1 := newLeaf(1)
	root := newBranch("root")
	root.Child = c1

	tr, err := Build(root)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	ms := ModificationSet{Changed: []uuid.UUID{c1.Intrinsics().EcsID}}
	fork := GreedyPath(tr, ms)

	if !fork[c1.Intrinsics().EcsID] {
		t.Error("GreedyPath did not include the changed node")
	}
	if !fork[root.Intrinsics().EcsID] {
		t.Error("GreedyPath did not include the root ancestor")
	}
}

func TestFingerprint_DiffersOnChange(t *testing.T) {
	l1 := newLeaf(1)
	l2 := newLeaf(2)

	if Fingerprint(l1) == Fingerprint(l2) {
		t.Error("fingerprints of different-valued leaves collided")
	}

	l1Copy := newLeaf(1)
	if Fingerprint(l1) != Fingerprint(l1Copy) {
		t.Error("fingerprints of identically-valued leaves differ")
	}
}
