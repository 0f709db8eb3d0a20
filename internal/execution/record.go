package execution

import (
	"time"

	"github.com/entityflow/entityflow/internal/entity"
)

// Record is the entity created on every call into the engine, success
// or failure, mirroring the teacher's EngineStats/ProcessRequest
// bookkeeping but persisted as a first-class, addressable entity
// instead of an in-memory counter.
type Record struct {
	entity.Base

	FunctionName     string            `entity:"function_name"`
	Strategy         string            `entity:"strategy"`
	InputIdentities  []string          `entity:"input_identities"`
	OutputIdentities []string          `entity:"output_identities"`
	Classifications  map[string]string `entity:"classifications"`
	DurationMS       int64             `entity:"duration_ms"`
	Success          bool              `entity:"success"`
	ErrorKind        string            `entity:"error_kind"`
	ErrorMessage     string            `entity:"error_message"`
}

func newRecord(functionName string, strategy Strategy) *Record {
	r := &Record{
		FunctionName:    functionName,
		Strategy:        string(strategy),
		Classifications: make(map[string]string),
	}
	entity.New(&r.Base)
	return r
}

func (r *Record) finish(start time.Time, success bool) {
	r.DurationMS = time.Since(start).Milliseconds()
	r.Success = success
}
