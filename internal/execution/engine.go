// Package execution is the callable dispatch half of the callable
// subsystem: strategy selection, copy-on-read input preparation,
// semantic classification of outputs, result shaping/unpacking, and
// provenance stitching, generalizing the teacher's
// ServiceEngine.ProcessRequest pipeline (track request, find target,
// invoke, classify result, record stats, always leave an audit trail)
// from contract-event service dispatch to reflective entity-function
// dispatch.
package execution

import (
	"context"
	"reflect"
	"strings"
	"time"

	"github.com/entityflow/entityflow/internal/address"
	"github.com/entityflow/entityflow/internal/callable"
	"github.com/entityflow/entityflow/internal/entity"
	"github.com/entityflow/entityflow/internal/registry"
	"github.com/entityflow/entityflow/pkg/entityerr"
	"github.com/entityflow/entityflow/pkg/logging"
	"github.com/entityflow/entityflow/pkg/metrics"
	"github.com/google/uuid"
)

// Result is what Execute returns on success: the entities it produced
// (already registered as roots) and the Execution Record describing
// the call.
type Result struct {
	Outputs []entity.Entity
	Record  *Record
}

// Engine ties a callable registry to an entity registry. It is
// constructable, not a singleton, the same way registry.Registry and
// (later) event.Bus are.
type Engine struct {
	Registry  *registry.Registry
	Callables *callable.Registry
	log       *logging.Logger
}

// New constructs an Engine over the given registries.
func New(reg *registry.Registry, callables *callable.Registry) *Engine {
	return &Engine{Registry: reg, Callables: callables, log: logging.NewFromEnv("execution")}
}

// Execute resolves any string-address arguments, selects a strategy,
// prepares copy-on-read inputs, invokes the named callable, classifies
// and shapes its outputs, stitches provenance, and creates an Execution
// Record for every call to a registered name — including when address
// resolution, config synthesis, or the call itself fails. A call to an
// unregistered name fails with UnknownFunction and leaves no record.
func (eng *Engine) Execute(ctx context.Context, name string, args ...any) (*Result, error) {
	start := time.Now()

	m, ok := eng.Callables.Metadata(name)
	if !ok {
		return nil, entityerr.UnknownFunction(name)
	}

	strategy := selectStrategy(m)
	rec := newRecord(name, strategy)

	_, records, primitives, explicitConfig, err := eng.classifyArgs(args)
	if err != nil {
		eng.fail(rec, start, err)
		_ = eng.Registry.RegisterRoot(rec)
		metrics.RecordInvocation(name, false, time.Since(start))
		return nil, err
	}

	var configEntity entity.Entity
	if m.UsesConfigEntity {
		switch {
		case explicitConfig != nil:
			configEntity = explicitConfig
		case len(primitives) > 0:
			configEntity, err = synthesizeConfig(m.ConfigType, primitives)
		default:
			configEntity, err = synthesizeConfig(m.ConfigType, nil)
		}
		if err != nil {
			eng.fail(rec, start, err)
			_ = eng.Registry.RegisterRoot(rec)
			metrics.RecordInvocation(name, false, time.Since(start))
			return nil, err
		}
	}

	preparedRecords := make([]entity.Entity, len(records))
	identityMap := make(map[uuid.UUID]entity.CopyRecord)
	for i, r := range records {
		cp := entity.DeepCopy(r, false, identityMap)
		preparedRecords[i] = cp
		rec.InputIdentities = append(rec.InputIdentities, cp.Intrinsics().EcsID.String())
	}
	if configEntity != nil {
		rec.InputIdentities = append(rec.InputIdentities, configEntity.Intrinsics().EcsID.String())
	}

	callArgs, err := buildCallArgs(ctx, m, preparedRecords, primitives, configEntity)
	if err != nil {
		eng.fail(rec, start, err)
		_ = eng.Registry.RegisterRoot(rec)
		metrics.RecordInvocation(name, false, time.Since(start))
		return nil, err
	}

	results := m.Func.Call(callArgs)
	if errVal := results[len(results)-1]; !errVal.IsNil() {
		callErr := errVal.Interface().(error)
		wrapped := entityerr.ExecutionFailure(name, callErr)
		eng.fail(rec, start, wrapped)
		_ = eng.Registry.RegisterRoot(rec)
		metrics.RecordInvocation(name, false, time.Since(start))
		return nil, wrapped
	}

	raw := make([]any, len(results)-1)
	for i := 0; i < len(results)-1; i++ {
		raw[i] = results[i].Interface()
	}

	outputs, err := shapeOutputs(eng.Registry, m, raw)
	if err != nil {
		wrapped := entityerr.OutputShape(name, err.Error())
		eng.fail(rec, start, wrapped)
		_ = eng.Registry.RegisterRoot(rec)
		metrics.RecordInvocation(name, false, time.Since(start))
		return nil, wrapped
	}

	allInputs := append(append([]entity.Entity{}, preparedRecords...), nonNilEntity(configEntity)...)
	for i, out := range outputs {
		classification := classify(out, identityMap, records)
		stitchProvenance(out, allInputs)

		finalOut, finalEcsID, err := eng.commitOutput(out, classification, identityMap)
		if err != nil {
			wrapped := entityerr.Classification(err.Error())
			eng.fail(rec, start, wrapped)
			_ = eng.Registry.RegisterRoot(rec)
			metrics.RecordInvocation(name, false, time.Since(start))
			return nil, wrapped
		}
		outputs[i] = finalOut

		rec.Classifications[finalEcsID.String()] = string(classification)
		rec.OutputIdentities = append(rec.OutputIdentities, finalEcsID.String())
		metrics.RecordClassification(string(classification))
	}

	rec.finish(start, true)
	if err := eng.Registry.RegisterRoot(rec); err != nil {
		eng.log.WithError(err).Warn("failed to register execution record")
	}

	eng.log.LogInvocation(ctx, name, time.Since(start), nil)
	metrics.RecordInvocation(name, true, time.Since(start))

	return &Result{Outputs: outputs, Record: rec}, nil
}

// commitOutput persists out per its semantic classification and
// returns the entity that should actually be handed back to the
// caller, together with its final ecs_id. A creation registers a
// brand-new root and is returned as-is. A pass-through is already
// registered (it IS the input) and needs no write, so it is also
// returned as-is. A mutation forks the input's lineage via the
// registry rather than re-registering the copy's still-original
// ecs_id directly, which would collide — the caller-visible entity
// must be the freshly forked version the registry now holds, not the
// stale-ecs_id value the callable returned, or spec.md's "returned
// entity has ecs_id != e.ecs_id" guarantee would silently not hold.
func (eng *Engine) commitOutput(out entity.Entity, classification Classification, identityMap map[uuid.UUID]entity.CopyRecord) (entity.Entity, uuid.UUID, error) {
	switch classification {
	case ClassificationCreation:
		if err := eng.Registry.RegisterRoot(out); err != nil {
			return nil, uuid.Nil, err
		}
		return out, out.Intrinsics().EcsID, nil

	case ClassificationPassThrough:
		return out, out.Intrinsics().EcsID, nil

	default: // mutation
		cp := identityMap[out.Intrinsics().LiveID]
		mapping, err := eng.Registry.ForkRoot(cp.OriginalEcsID, out)
		if err != nil {
			return nil, uuid.Nil, err
		}
		newID, ok := mapping[cp.OriginalEcsID]
		if !ok {
			return out, out.Intrinsics().EcsID, nil
		}
		forked, err := eng.Registry.FetchByEcsID(newID)
		if err != nil {
			return nil, uuid.Nil, err
		}
		return forked, newID, nil
	}
}

func (eng *Engine) fail(rec *Record, start time.Time, err error) {
	rec.finish(start, false)
	if e, ok := entityerr.As(err); ok {
		rec.ErrorKind = string(e.Code)
		rec.ErrorMessage = e.Message
	} else {
		rec.ErrorKind = string(entityerr.CodeExecutionFailure)
		rec.ErrorMessage = err.Error()
	}
}

func nonNilEntity(e entity.Entity) []entity.Entity {
	if e == nil {
		return nil
	}
	return []entity.Entity{e}
}

// classifyArgs resolves any `@...` address arguments against the
// registry, then splits the resolved values into entity records,
// plain primitives, and (if one directly satisfies ConfigEntity) an
// explicitly supplied configuration entity.
func (eng *Engine) classifyArgs(args []any) (resolved []any, records []entity.Entity, primitives []any, explicitConfig callable.ConfigEntity, err error) {
	for _, a := range args {
		v := a
		if s, ok := a.(string); ok && strings.HasPrefix(s, "@") {
			v, err = address.Resolve(eng.Registry, s)
			if err != nil {
				return nil, nil, nil, nil, err
			}
		}
		resolved = append(resolved, v)

		if ce, ok := v.(callable.ConfigEntity); ok {
			explicitConfig = ce
			continue
		}
		if e, ok := v.(entity.Entity); ok {
			records = append(records, e)
			continue
		}
		primitives = append(primitives, v)
	}
	return resolved, records, primitives, explicitConfig, nil
}

// selectStrategy derives the execution strategy from the callable's
// declared parameter shape rather than the specific call's arguments,
// so the same callable always dispatches the same way.
func selectStrategy(m *callable.Metadata) Strategy {
	recordParams := 0
	for _, pt := range m.ParamTypes {
		if pt == m.ConfigType {
			continue
		}
		if pt.Implements(reflect.TypeOf((*entity.Entity)(nil)).Elem()) {
			recordParams++
		}
	}
	switch {
	case recordParams == 0:
		return StrategyBorrow
	case recordParams == 1 && !m.UsesConfigEntity:
		return StrategySingleRecord
	case recordParams == 1 && m.UsesConfigEntity:
		return StrategyRecordWithConfig
	default:
		return StrategyMultiRecord
	}
}

// synthesizeConfig builds a fresh instance of configType, assigning
// primitives positionally into its entity-tagged fields in struct
// declaration order. This is the Go analogue of spec.md's "bundle the
// primitives into a configuration entity": Go call sites have no
// named-argument binding to draw field names from, so position stands
// in for the keyword matching a dynamic-language host would use.
func synthesizeConfig(configType reflect.Type, primitives []any) (entity.Entity, error) {
	if configType == nil {
		return nil, entityerr.New(entityerr.CodeArgumentType, "no configuration type declared for this callable")
	}
	instPtr := reflect.New(configType.Elem())
	baseField := instPtr.Elem().FieldByName("Base")
	if !baseField.IsValid() {
		return nil, entityerr.New(entityerr.CodeArgumentType, "configuration type does not embed entity.Base")
	}
	entity.New(baseField.Addr().Interface().(*entity.Base))

	t := configType.Elem()
	fieldIdx := 0
	for i := 0; i < t.NumField() && fieldIdx < len(primitives); i++ {
		sf := t.Field(i)
		if sf.Anonymous {
			continue
		}
		if _, ok := sf.Tag.Lookup("entity"); !ok {
			continue
		}
		val := reflect.ValueOf(primitives[fieldIdx])
		f := instPtr.Elem().Field(i)
		if val.Type().AssignableTo(f.Type()) {
			f.Set(val)
		} else if val.Type().ConvertibleTo(f.Type()) {
			f.Set(val.Convert(f.Type()))
		} else {
			return nil, entityerr.ArgumentType(sf.Name, f.Type().String(), val.Type().String())
		}
		fieldIdx++
	}
	return instPtr.Interface().(entity.Entity), nil
}

// buildCallArgs assembles the final positional argument list for
// reflect.Value.Call, matching each declared parameter type against
// the config entity, the next prepared record copy, or the next
// primitive, in that priority order.
func buildCallArgs(ctx context.Context, m *callable.Metadata, records []entity.Entity, primitives []any, configEntity entity.Entity) ([]reflect.Value, error) {
	out := make([]reflect.Value, 0, len(m.ParamTypes)+1)
	out = append(out, reflect.ValueOf(ctx))

	recordIdx, primitiveIdx := 0, 0
	entityIface := reflect.TypeOf((*entity.Entity)(nil)).Elem()
	for _, pt := range m.ParamTypes {
		switch {
		case pt == m.ConfigType && configEntity != nil:
			out = append(out, reflect.ValueOf(configEntity))
		case pt.Implements(entityIface):
			if recordIdx >= len(records) {
				return nil, entityerr.ArgumentType(pt.String(), pt.String(), "<missing>")
			}
			out = append(out, reflect.ValueOf(records[recordIdx]))
			recordIdx++
		default:
			if primitiveIdx >= len(primitives) {
				return nil, entityerr.ArgumentType(pt.String(), pt.String(), "<missing>")
			}
			pv := reflect.ValueOf(primitives[primitiveIdx])
			if !pv.Type().AssignableTo(pt) {
				if pv.Type().ConvertibleTo(pt) {
					pv = pv.Convert(pt)
				} else {
					return nil, entityerr.ArgumentType(pt.String(), pt.String(), pv.Type().String())
				}
			}
			out = append(out, pv)
			primitiveIdx++
		}
	}
	return out, nil
}

