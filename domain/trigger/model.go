// Package trigger is an example consumer-defined entity type: a rule
// binding a runtime event or schedule to a function invocation.
// Adapted from the teacher's domain/trigger.Trigger (a plain tagged
// struct with no behavior) into an entity.Base-embedding type with two
// registered callables, demonstrating the mutation classification on a
// record shaped entirely by the consumer.
package trigger

import (
	"context"

	"github.com/entityflow/entityflow/internal/callable"
	"github.com/entityflow/entityflow/internal/entity"
	"github.com/entityflow/entityflow/pkg/entityerr"
)

// Type represents the supported trigger categories.
type Type string

const (
	TypeCron    Type = "cron"
	TypeEvent   Type = "event"
	TypeWebhook Type = "webhook"
)

// Trigger binds a runtime rule to a function invocation.
type Trigger struct {
	entity.Base
	AccountID  string            `entity:"account_id"`
	FunctionID string            `entity:"function_id"`
	Type       Type              `entity:"type"`
	Rule       string            `entity:"rule"`
	Config     map[string]string `entity:"config"`
	Enabled    bool              `entity:"enabled"`
}

// New allocates a fresh, enabled Trigger with its own identity.
func New(accountID, functionID string, kind Type, rule string) *Trigger {
	t := &Trigger{AccountID: accountID, FunctionID: functionID, Type: kind, Rule: rule, Enabled: true, Config: map[string]string{}}
	entity.New(&t.Base)
	return t
}

// Enable is a mutation callable registered as "trigger.enable": it
// turns t on, failing if there is no rule to match against.
func Enable(ctx context.Context, t *Trigger) (*Trigger, error) {
	if t.Rule == "" {
		return nil, entityerr.New(entityerr.CodeExecutionFailure, "trigger has no rule to match against")
	}
	t.Enabled = true
	return t, nil
}

// Disable is a mutation callable registered as "trigger.disable": it
// turns t off unconditionally.
func Disable(ctx context.Context, t *Trigger) (*Trigger, error) {
	t.Enabled = false
	return t, nil
}

// Register wires this package's callables into reg under the
// "trigger." namespace.
func Register(reg *callable.Registry) error {
	if err := reg.Register("trigger.enable", Enable); err != nil {
		return err
	}
	return reg.Register("trigger.disable", Disable)
}
