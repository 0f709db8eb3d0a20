package event

import (
	"context"
)

// CreatingFactory builds the event announcing an operation is about to
// run, given the context it will run under.
type CreatingFactory func(ctx context.Context) Event

// CreatedFactory builds the event announcing an operation's success,
// given its result.
type CreatedFactory func(result any) Event

// FailedFactory builds the event announcing an operation's failure,
// given the error it returned. May be nil, in which case a failure is
// simply not emitted.
type FailedFactory func(err error) Event

// Decorate wraps op with creating/created/failed event emission and
// scope management: it emits the creating event and pushes it as the
// active scope, runs op, emits created or failed depending on the
// outcome, and always pops the scope — regardless of success or
// failure — before returning. It never alters op's return value or
// error.
func Decorate(ctx context.Context, bus *Bus, creating CreatingFactory, created CreatedFactory, failed FailedFactory, op func(ctx context.Context) (any, error)) (any, error) {
	ce := creating(ctx)
	ce = bus.Emit(ctx, ce)
	scoped := PushContext(ctx, ce)
	defer func() {
		_ = PopContext(scoped)
	}()

	result, err := op(scoped)

	if err != nil {
		if failed != nil {
			bus.Emit(scoped, failed(err))
		}
		return result, err
	}

	if created != nil {
		bus.Emit(scoped, created(result))
	}
	return result, nil
}
