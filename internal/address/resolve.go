package address

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/entityflow/entityflow/internal/entity"
	"github.com/entityflow/entityflow/internal/registry"
	"github.com/entityflow/entityflow/pkg/entityerr"
	"github.com/entityflow/entityflow/pkg/metrics"
	"github.com/tidwall/gjson"
)

// Resolve parses raw and projects it against reg: fetches the
// referenced entity by ecs_id (late resolution — the entity need only
// exist at resolve time, not at address-construction time) and walks
// each segment in turn. Resolution against a struct field,
// slice index, or map key uses reflection directly; resolution into a
// string field holding raw JSON switches to gjson for the remainder of
// the path, since struct reflection cannot walk schemaless JSON.
func Resolve(reg *registry.Registry, raw string) (any, error) {
	v, err := resolve(reg, raw)
	if err != nil {
		kind := string(entityerr.CodeExecutionFailure)
		if e, ok := entityerr.As(err); ok {
			kind = string(e.Code)
		}
		metrics.RecordAddressResolutionFailure(kind)
	}
	return v, err
}

func resolve(reg *registry.Registry, raw string) (any, error) {
	ast, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	e, err := reg.FetchByEcsID(ast.EcsID)
	if err != nil {
		return nil, entityerr.AddressNotFound(ast.EcsID.String())
	}

	var current any = e
	for i, seg := range ast.Segments {
		if s, ok := current.(string); ok && looksLikeJSON(s) {
			return resolveJSON(raw, s, ast.Segments[i:])
		}
		next, err := project(current, seg)
		if err != nil {
			return nil, entityerr.AddressField(raw, segmentLabel(seg))
		}
		current = next
	}
	return current, nil
}

func project(current any, seg Segment) (any, error) {
	switch seg.Kind {
	case SegmentField:
		ent, ok := current.(entity.Entity)
		if !ok {
			// An unquoted identifier segment also selects a string map key.
			return project(current, Segment{Kind: SegmentKey, Key: seg.Name})
		}
		fields := entity.Fields(ent)
		v, ok := fields[seg.Name]
		if !ok {
			return nil, errSegment
		}
		return v, nil

	case SegmentIndex:
		v := reflect.ValueOf(current)
		for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
			v = v.Elem()
		}
		if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
			return nil, errSegment
		}
		if seg.Index < 0 || seg.Index >= v.Len() {
			return nil, errSegment
		}
		return v.Index(seg.Index).Interface(), nil

	case SegmentKey:
		v := reflect.ValueOf(current)
		for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
			v = v.Elem()
		}
		if v.Kind() != reflect.Map {
			return nil, errSegment
		}
		mv := v.MapIndex(reflect.ValueOf(seg.Key))
		if !mv.IsValid() {
			return nil, errSegment
		}
		return mv.Interface(), nil
	}
	return nil, errSegment
}

var errSegment = entityerr.New(entityerr.CodeAddressField, "segment lookup failed")

func segmentLabel(seg Segment) string {
	switch seg.Kind {
	case SegmentField:
		return seg.Name
	case SegmentIndex:
		return strconv.Itoa(seg.Index)
	default:
		return seg.Key
	}
}

// looksLikeJSON is a cheap heuristic: a field holds projectable raw
// JSON when its trimmed content starts with an object or array marker.
func looksLikeJSON(s string) bool {
	t := strings.TrimSpace(s)
	return strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[")
}

func resolveJSON(raw, doc string, segs []Segment) (any, error) {
	path := gjsonPath(segs)
	result := gjson.Get(doc, path)
	if !result.Exists() {
		return nil, entityerr.AddressField(raw, path)
	}
	return result.Value(), nil
}

func gjsonPath(segs []Segment) string {
	parts := make([]string, len(segs))
	for i, seg := range segs {
		switch seg.Kind {
		case SegmentField:
			parts[i] = seg.Name
		case SegmentIndex:
			parts[i] = strconv.Itoa(seg.Index)
		case SegmentKey:
			parts[i] = seg.Key
		}
	}
	return strings.Join(parts, ".")
}
