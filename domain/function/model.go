// Package function is an example consumer-defined entity type: a
// user-provided function the runtime can execute, standing in for
// "the consumer's own record shapes" that spec.md leaves entirely up
// to the caller. Adapted from the teacher's domain/function.Definition
// (a plain tagged struct with no behavior), this version embeds
// entity.Base so it satisfies entity.Entity and registers two
// callables against it.
package function

import (
	"context"
	"strings"

	"github.com/entityflow/entityflow/internal/callable"
	"github.com/entityflow/entityflow/internal/entity"
	"github.com/entityflow/entityflow/pkg/entityerr"
)

// Definition describes a user-provided function that can be executed
// by the runtime.
type Definition struct {
	entity.Base
	AccountID   string   `entity:"account_id"`
	Name        string   `entity:"name"`
	Description string   `entity:"description"`
	Source      string   `entity:"source"`
	Secrets     []string `entity:"secrets"`
	Published   bool     `entity:"published"`
}

// New allocates a fresh Definition with its own identity.
func New(accountID, name, source string) *Definition {
	d := &Definition{AccountID: accountID, Name: name, Source: source}
	entity.New(&d.Base)
	return d
}

// Validate is a pass-through callable registered as
// "function.validate": it inspects d and, on success, returns the
// same identity unchanged — the engine classifies this as a
// pass-through, not a mutation, since nothing about d is written.
func Validate(ctx context.Context, d *Definition) (*Definition, error) {
	if strings.TrimSpace(d.Name) == "" {
		return nil, entityerr.New(entityerr.CodeExecutionFailure, "function name is empty")
	}
	if strings.TrimSpace(d.Source) == "" {
		return nil, entityerr.New(entityerr.CodeExecutionFailure, "function source is empty")
	}
	return d, nil
}

// Publish is a mutation callable registered as "function.publish": it
// marks d published and returns it, giving the execution engine a
// realistic field write to classify and fork lineage over.
func Publish(ctx context.Context, d *Definition) (*Definition, error) {
	d.Published = true
	return d, nil
}

// Register wires this package's callables into reg under the
// "function." namespace.
func Register(reg *callable.Registry) error {
	if err := reg.Register("function.validate", Validate); err != nil {
		return err
	}
	return reg.Register("function.publish", Publish)
}
