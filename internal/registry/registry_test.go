package registry

import (
	"sync"
	"testing"

	"github.com/entityflow/entityflow/internal/entity"
)

type record struct {
	entity.Base
	V int `entity:"v"`
}

func newRecord(v int) *record {
	r := &record{V: v}
	entity.New(&r.Base)
	return r
}

func TestRegisterRoot_DuplicateFails(t *testing.T) {
	reg := New()
	e := newRecord(1)
	if err := reg.RegisterRoot(e); err != nil {
		t.Fatalf("RegisterRoot() error = %v", err)
	}
	if err := reg.RegisterRoot(e); err == nil {
		t.Fatal("RegisterRoot() expected AlreadyExists on re-registration, got nil")
	}
}

func TestFetchTreeByRoot_IsImmutable(t *testing.T) {
	reg := New()
	e := newRecord(3)
	if err := reg.RegisterRoot(e); err != nil {
		t.Fatalf("RegisterRoot() error = %v", err)
	}

	t1, err := reg.FetchTreeByRoot(e.Intrinsics().EcsID)
	if err != nil {
		t.Fatalf("FetchTreeByRoot() error = %v", err)
	}
	node := t1.Nodes[e.Intrinsics().EcsID].Entity.(*record)
	node.V = 999

	t2, err := reg.FetchTreeByRoot(e.Intrinsics().EcsID)
	if err != nil {
		t.Fatalf("FetchTreeByRoot() error = %v", err)
	}
	if t2.Nodes[e.Intrinsics().EcsID].Entity.(*record).V != 3 {
		t.Error("mutating a fetched tree affected a later fetch")
	}
}

func TestForkRoot_IdentityFreshnessAndLineage(t *testing.T) {
	reg := New()
	e := newRecord(3)
	if err := reg.RegisterRoot(e); err != nil {
		t.Fatalf("RegisterRoot() error = %v", err)
	}

	candidate := entity.DeepCopy(e, false, nil).(*record)
	candidate.V = 4

	mapping, err := reg.ForkRoot(e.Intrinsics().EcsID, candidate)
	if err != nil {
		t.Fatalf("ForkRoot() error = %v", err)
	}
	newEcsID, ok := mapping[e.Intrinsics().EcsID]
	if !ok {
		t.Fatal("ForkRoot() did not fork the root's own ecs_id on a payload change")
	}
	if newEcsID == e.Intrinsics().EcsID {
		t.Error("forked ecs_id equals previous ecs_id")
	}

	chain := reg.LineageChain(e.Intrinsics().LineageID)
	if len(chain) != 2 {
		t.Fatalf("lineage chain length = %d, want 2", len(chain))
	}
	if chain[0] != e.Intrinsics().EcsID || chain[1] != newEcsID {
		t.Errorf("lineage chain = %v", chain)
	}
}

func TestForkRoot_ConcurrentSerializesOnSameLineage(t *testing.T) {
	reg := New()
	e := newRecord(0)
	if err := reg.RegisterRoot(e); err != nil {
		t.Fatalf("RegisterRoot() error = %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			candidate := entity.DeepCopy(e, false, nil).(*record)
			candidate.V = i + 1
			_, err := reg.ForkRoot(e.Intrinsics().EcsID, candidate)
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			t.Fatalf("ForkRoot() concurrent error = %v", err)
		}
	}

	chain := reg.LineageChain(e.Intrinsics().LineageID)
	if len(chain) != 3 {
		t.Fatalf("lineage chain length = %d, want 3 (original + 2 forks)", len(chain))
	}
}

func TestLineagesByType(t *testing.T) {
	reg := New()
	e := newRecord(1)
	if err := reg.RegisterRoot(e); err != nil {
		t.Fatalf("RegisterRoot() error = %v", err)
	}

	lineages := reg.LineagesByType("record")
	if len(lineages) != 1 || lineages[0] != e.Intrinsics().LineageID {
		t.Errorf("LineagesByType() = %v, want [%v]", lineages, e.Intrinsics().LineageID)
	}
}

func TestRootsByType(t *testing.T) {
	reg := New()
	e := newRecord(1)
	if err := reg.RegisterRoot(e); err != nil {
		t.Fatalf("RegisterRoot() error = %v", err)
	}

	roots := reg.RootsByType("record")
	if len(roots) != 1 || roots[0] != e.Intrinsics().EcsID {
		t.Errorf("RootsByType() = %v, want [%v]", roots, e.Intrinsics().EcsID)
	}
	if len(reg.RootsByType("nonexistent")) != 0 {
		t.Error("RootsByType() on an absent type should return nothing")
	}
}

func TestDeleteRoot_RemovesAllIndexes(t *testing.T) {
	reg := New()
	e := newRecord(1)
	if err := reg.RegisterRoot(e); err != nil {
		t.Fatalf("RegisterRoot() error = %v", err)
	}

	if err := reg.DeleteRoot(e.Intrinsics().EcsID); err != nil {
		t.Fatalf("DeleteRoot() error = %v", err)
	}

	if _, err := reg.FetchByEcsID(e.Intrinsics().EcsID); err == nil {
		t.Error("FetchByEcsID() found an entity after DeleteRoot()")
	}
	if len(reg.RootsByType("record")) != 0 {
		t.Error("RootsByType() still reports a deleted root")
	}
	if chain := reg.LineageChain(e.Intrinsics().LineageID); len(chain) != 0 {
		t.Errorf("LineageChain() = %v, want empty after DeleteRoot()", chain)
	}
	if err := reg.DeleteRoot(e.Intrinsics().EcsID); err == nil {
		t.Error("DeleteRoot() on an already-deleted root should fail")
	}
}

func TestRootCreatedAt(t *testing.T) {
	reg := New()
	e := newRecord(1)
	if err := reg.RegisterRoot(e); err != nil {
		t.Fatalf("RegisterRoot() error = %v", err)
	}

	got, err := reg.RootCreatedAt(e.Intrinsics().EcsID)
	if err != nil {
		t.Fatalf("RootCreatedAt() error = %v", err)
	}
	if got.IsZero() {
		t.Error("RootCreatedAt() returned the zero time")
	}
}
