// Package registry is the process-wide, scoped index of root-entity
// versions: by_root_ecs_id, by_lineage, by_type, and live_index,
// generalizing the teacher's ServiceEngine (map+mutex registry of
// named things, looked up and listed under one lock) from a registry
// of named services to a registry of versioned entity trees keyed by
// identity.
package registry

import (
	"sync"
	"time"

	"github.com/entityflow/entityflow/internal/entity"
	"github.com/entityflow/entityflow/internal/tree"
	"github.com/entityflow/entityflow/pkg/entityerr"
	"github.com/google/uuid"
)

// Registry is constructable (not a singleton) so tests and consumers
// can run multiple isolated instances in the same process.
type Registry struct {
	mu sync.Mutex

	byRootEcsID map[uuid.UUID]*tree.Tree
	byLineage   map[uuid.UUID][]uuid.UUID // chronological ecs_id chain
	byType      map[string]map[uuid.UUID]bool
	liveIndex   map[uuid.UUID]entity.Entity

	lineageLocks map[uuid.UUID]*sync.Mutex
	lineageMu    sync.Mutex
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{
		byRootEcsID:  make(map[uuid.UUID]*tree.Tree),
		byLineage:    make(map[uuid.UUID][]uuid.UUID),
		byType:       make(map[string]map[uuid.UUID]bool),
		liveIndex:    make(map[uuid.UUID]entity.Entity),
		lineageLocks: make(map[uuid.UUID]*sync.Mutex),
	}
}

func (r *Registry) lockFor(lineageID uuid.UUID) *sync.Mutex {
	r.lineageMu.Lock()
	defer r.lineageMu.Unlock()
	l, ok := r.lineageLocks[lineageID]
	if !ok {
		l = &sync.Mutex{}
		r.lineageLocks[lineageID] = l
	}
	return l
}

// RegisterRoot inserts root's tree snapshot, appends to the lineage
// chain, and updates the type index. Fails with AlreadyExists if
// root's ecs_id is already registered.
func (r *Registry) RegisterRoot(root entity.Entity) error {
	in := root.Intrinsics()
	in.RootEcsID = in.EcsID
	in.RootLiveID = in.LiveID

	t, err := tree.Build(root)
	if err != nil {
		return err
	}
	assignRootIdentity(t, in.EcsID, in.LiveID)

	lock := r.lockFor(in.LineageID)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byRootEcsID[in.EcsID]; exists {
		return entityerr.AlreadyExists("entity", in.EcsID.String())
	}

	r.byRootEcsID[in.EcsID] = t
	r.byLineage[in.LineageID] = append(r.byLineage[in.LineageID], in.EcsID)
	for _, node := range t.Nodes {
		r.indexType(node.Entity)
		r.liveIndex[node.Entity.Intrinsics().LiveID] = node.Entity
	}
	return nil
}

func (r *Registry) indexType(e entity.Entity) {
	typeName := entity.TypeName(e)
	set, ok := r.byType[typeName]
	if !ok {
		set = make(map[uuid.UUID]bool)
		r.byType[typeName] = set
	}
	set[e.Intrinsics().LineageID] = true
}

func assignRootIdentity(t *tree.Tree, rootEcsID, rootLiveID uuid.UUID) {
	for _, node := range t.Nodes {
		in := node.Entity.Intrinsics()
		in.RootEcsID = rootEcsID
		in.RootLiveID = rootLiveID
	}
}

// ForkRoot takes a live candidate root believed to be newer than the
// version stored under oldEcsID, builds its tree, diffs against the
// stored tree, forks identities on the greedy path, updates the three
// indexes, and returns the old->new ecs_id mapping for every forked
// node. Two concurrent forks on the same lineage are serialized by a
// per-lineage lock; each diffs against the tree stored under oldEcsID,
// so both forked roots carry oldEcsID as their previous_ecs_id.
func (r *Registry) ForkRoot(oldEcsID uuid.UUID, candidate entity.Entity) (map[uuid.UUID]uuid.UUID, error) {
	lineageID := candidate.Intrinsics().LineageID
	lock := r.lockFor(lineageID)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	oldTree, ok := r.byRootEcsID[oldEcsID]
	r.mu.Unlock()
	if !ok {
		return nil, entityerr.NotFound("entity", oldEcsID.String())
	}

	newTree, err := tree.Build(candidate)
	if err != nil {
		return nil, err
	}

	ms := tree.Diff(oldTree, newTree)
	forkSet := tree.GreedyPath(newTree, ms)

	mapping := make(map[uuid.UUID]uuid.UUID)
	forkedTree := &tree.Tree{
		Nodes:    make(map[uuid.UUID]tree.Node),
		Ancestry: make(map[uuid.UUID][]uuid.UUID),
	}

	for id, node := range newTree.Nodes {
		if forkSet[id] {
			forked := entity.DeepCopy(node.Entity, true, nil)
			newID := forked.Intrinsics().EcsID
			mapping[id] = newID
			forkedTree.Nodes[newID] = tree.Node{EcsID: newID, Entity: forked}
		} else {
			// Not on the fork path, but still copied rather than
			// referenced directly: newTree was built over the live
			// candidate the caller holds, and storing that reference
			// here would let a later in-place mutation by the caller
			// corrupt this snapshot without going through RegisterRoot
			// or ForkRoot.
			copied := entity.DeepCopy(node.Entity, false, nil)
			forkedTree.Nodes[id] = tree.Node{EcsID: id, Entity: copied}
		}
	}
	var newRootEcsID uuid.UUID
	if mapped, ok := mapping[candidate.Intrinsics().EcsID]; ok {
		newRootEcsID = mapped
	} else {
		newRootEcsID = candidate.Intrinsics().EcsID
	}
	forkedTree.RootEcsID = newRootEcsID
	assignRootIdentity(forkedTree, newRootEcsID, candidate.Intrinsics().LiveID)
	for ecsID, path := range newTree.Ancestry {
		id := ecsID
		if mapped, ok := mapping[ecsID]; ok {
			id = mapped
		}
		newPath := make([]uuid.UUID, len(path))
		for i, p := range path {
			if mapped, ok := mapping[p]; ok {
				newPath[i] = mapped
			} else {
				newPath[i] = p
			}
		}
		forkedTree.Ancestry[id] = newPath
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byRootEcsID[newRootEcsID] = forkedTree
	r.byLineage[lineageID] = append(r.byLineage[lineageID], newRootEcsID)
	for _, node := range forkedTree.Nodes {
		r.indexType(node.Entity)
		r.liveIndex[node.Entity.Intrinsics().LiveID] = node.Entity
	}

	return mapping, nil
}

// FetchTreeByRoot returns a fresh deep copy of the tree stored under
// rootEcsID, so callers cannot mutate stored state (copy-on-read).
func (r *Registry) FetchTreeByRoot(rootEcsID uuid.UUID) (*tree.Tree, error) {
	r.mu.Lock()
	t, ok := r.byRootEcsID[rootEcsID]
	r.mu.Unlock()
	if !ok {
		return nil, entityerr.NotFound("entity", rootEcsID.String())
	}

	root := t.Nodes[rootEcsID].Entity
	copied := entity.DeepCopy(root, false, nil)
	return tree.Build(copied)
}

// FetchByEcsID returns a fresh copy of the entity with the given
// ecs_id, wherever it lives in its tree, searching every stored root
// until found.
func (r *Registry) FetchByEcsID(ecsID uuid.UUID) (entity.Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.byRootEcsID {
		if node, ok := t.Nodes[ecsID]; ok {
			return entity.DeepCopy(node.Entity, false, nil), nil
		}
	}
	return nil, entityerr.NotFound("entity", ecsID.String())
}

// LineageChain returns the chronological ecs_id chain for a lineage.
func (r *Registry) LineageChain(lineageID uuid.UUID) []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	chain := r.byLineage[lineageID]
	out := make([]uuid.UUID, len(chain))
	copy(out, chain)
	return out
}

// LineagesByType returns every lineage_id that has ever contained a
// node of the given consumer type name.
func (r *Registry) LineagesByType(typeName string) []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.byType[typeName]
	out := make([]uuid.UUID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// RootsByType returns the root ecs_ids currently stored whose root
// node's type name matches typeName. Unlike LineagesByType (which
// tracks every type any node in a lineage has ever had), this looks
// only at current roots, which is what the retention sweep needs to
// find prunable execution records without touching domain-entity
// storage.
func (r *Registry) RootsByType(typeName string) []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []uuid.UUID
	for rootEcsID, t := range r.byRootEcsID {
		node, ok := t.Nodes[t.RootEcsID]
		if !ok {
			continue
		}
		if entity.TypeName(node.Entity) == typeName {
			out = append(out, rootEcsID)
		}
	}
	return out
}

// RootCreatedAt returns the CreatedAt timestamp of the root stored
// under rootEcsID.
func (r *Registry) RootCreatedAt(rootEcsID uuid.UUID) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byRootEcsID[rootEcsID]
	if !ok {
		return time.Time{}, entityerr.NotFound("entity", rootEcsID.String())
	}
	node, ok := t.Nodes[t.RootEcsID]
	if !ok {
		return time.Time{}, entityerr.NotFound("entity", rootEcsID.String())
	}
	return node.Entity.Intrinsics().CreatedAt, nil
}

// DeleteRoot removes a stored root entirely: its tree, its lineage
// chain entry, and every node's type/live index entries. This is a
// narrow primitive for the retention sweep to prune aged-out
// housekeeping records (execution records); it is never called
// against ordinary domain-entity roots, whose orphan retention is
// deliberately indefinite.
func (r *Registry) DeleteRoot(rootEcsID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byRootEcsID[rootEcsID]
	if !ok {
		return entityerr.NotFound("entity", rootEcsID.String())
	}
	delete(r.byRootEcsID, rootEcsID)
	for _, node := range t.Nodes {
		in := node.Entity.Intrinsics()
		delete(r.liveIndex, in.LiveID)
		typeName := entity.TypeName(node.Entity)
		if set, ok := r.byType[typeName]; ok {
			delete(set, in.LineageID)
		}
	}
	chain := r.byLineage[t.Nodes[t.RootEcsID].Entity.Intrinsics().LineageID]
	filtered := chain[:0]
	for _, id := range chain {
		if id != rootEcsID {
			filtered = append(filtered, id)
		}
	}
	r.byLineage[t.Nodes[t.RootEcsID].Entity.Intrinsics().LineageID] = filtered
	return nil
}
