package executor

import (
	"fmt"

	language "github.com/hanpama/permgraph/internal/language"
	schema "github.com/hanpama/permgraph/internal/schema"
)

// pendingField is an async field waiting for the next batch.
type pendingField struct {
	task     AsyncResolveTask
	path     Path
	boundary Path
	typ      *schema.TypeRef
	fields   []*language.Field
}

// flush resolves every queued field whose parent is still part of data in
// one BatchResolveAsync call and completes the results into data. Fields
// queued while completing wait for the next flush.
func (ex *execution) flush(data map[string]any) {
	live := make([]*pendingField, 0, len(ex.pending))
	for _, pf := range ex.pending {
		if _, ok := lookup(data, pf.path.Parent()); ok {
			live = append(live, pf)
		}
	}
	ex.pending = nil
	if len(live) == 0 {
		return
	}

	tasks := make([]AsyncResolveTask, len(live))
	for i, pf := range live {
		tasks[i] = pf.task
	}
	results := ex.runtime.BatchResolveAsync(ex.ctx, tasks)

	for i, pf := range live {
		var res AsyncResolveResult
		if i < len(results) {
			res = results[i]
		} else {
			res.Error = fmt.Errorf("runtime returned %d results for %d tasks", len(results), len(tasks))
		}
		ex.completePending(data, pf, res)
	}
}

func (ex *execution) completePending(data map[string]any, pf *pendingField, res AsyncResolveResult) {
	// An earlier result in the same batch may have nulled an ancestor.
	if _, ok := lookup(data, pf.path.Parent()); !ok {
		return
	}
	var completed any
	if res.Error != nil {
		ex.addLocated(res.Error, pf.path)
	} else {
		completed = ex.completeValue(pf.typ, pf.fields, res.Value, pf.path, pf.boundary)
	}
	if completed == nil && pf.typ.IsNonNull() {
		store(data, pf.boundary, nil)
		return
	}
	store(data, pf.path, completed)
}

// lookup returns the value at path in the response tree. ok is false when
// the path does not exist or passes through null.
func lookup(data map[string]any, path Path) (any, bool) {
	var cur any = data
	for _, elem := range path {
		switch e := elem.(type) {
		case string:
			m, isMap := cur.(map[string]any)
			if !isMap {
				return nil, false
			}
			next, exists := m[e]
			if !exists {
				return nil, false
			}
			cur = next
		case int:
			s, isSlice := cur.([]any)
			if !isSlice || e < 0 || e >= len(s) {
				return nil, false
			}
			cur = s[e]
		default:
			return nil, false
		}
		if cur == nil {
			return nil, false
		}
	}
	return cur, true
}

// store writes value at path if its parent exists.
func store(data map[string]any, path Path, value any) {
	if len(path) == 0 {
		return
	}
	parent, ok := lookup(data, path.Parent())
	if !ok {
		return
	}
	switch e := path[len(path)-1].(type) {
	case string:
		if m, isMap := parent.(map[string]any); isMap {
			m[e] = value
		}
	case int:
		if s, isSlice := parent.([]any); isSlice && e >= 0 && e < len(s) {
			s[e] = value
		}
	}
}
