package tree

import (
	"fmt"
	"sort"

	"github.com/entityflow/entityflow/internal/entity"
	"golang.org/x/crypto/blake2b"
)

// Fingerprint hashes a node's entity-tagged field values into a short
// content fingerprint, formatting each value with %v. Diff does not
// consult it. A field holding a nested entity is hashed by that
// entity's full printed content, intrinsics (including live_id)
// included, whereas Diff compares nested entities by ecs_id only; so a
// fingerprint difference implies a Diff difference only for nodes with
// no nested-entity fields. It does not change ecs_id semantics.
func Fingerprint(e entity.Entity) string {
	fields := entity.Fields(e)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h, _ := blake2b.New256(nil)
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%v;", k, fields[k])
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
