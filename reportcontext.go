package checkend

import (
	"context"
	"sync"
)

type ctxKey int

const reportDataCtxKey = ctxKey(1)

// reportData is the per-request context/user/request trio carried on a
// context.Context. It replaces the ambient thread-local storage other SDKs
// use: data is propagated explicitly with the context, so concurrent logical
// requests sharing goroutines cannot leak into each other.
type reportData struct {
	mu      sync.Mutex
	context map[string]interface{}
	user    map[string]interface{}
	request map[string]interface{}
}

// AttachReportData returns a context carrying a fresh, empty report-data
// container. SetContext, SetUser and SetRequest mutate the attached container;
// the notice builder reads it when a fault is reported with this context.
func AttachReportData(ctx context.Context) context.Context {
	return context.WithValue(ctx, reportDataCtxKey, &reportData{})
}

// HasReportData reports whether ctx carries a report-data container.
func HasReportData(ctx context.Context) bool {
	_, ok := ctx.Value(reportDataCtxKey).(*reportData)
	return ok
}

// SetContext merges kv into the custom context data attached to ctx. It is a
// no-op when ctx carries no report data.
func SetContext(ctx context.Context, kv map[string]interface{}) {
	d := dataFromContext(ctx)
	d.merge(&d.context, kv)
}

// SetUser merges kv into the user data attached to ctx.
func SetUser(ctx context.Context, kv map[string]interface{}) {
	d := dataFromContext(ctx)
	d.merge(&d.user, kv)
}

// SetRequest merges kv into the request data attached to ctx.
func SetRequest(ctx context.Context, kv map[string]interface{}) {
	d := dataFromContext(ctx)
	d.merge(&d.request, kv)
}

// ContextData returns a copy of the custom context data attached to ctx.
func ContextData(ctx context.Context) map[string]interface{} {
	return dataFromContext(ctx).snapshot(func(d *reportData) map[string]interface{} { return d.context })
}

// UserData returns a copy of the user data attached to ctx.
func UserData(ctx context.Context) map[string]interface{} {
	return dataFromContext(ctx).snapshot(func(d *reportData) map[string]interface{} { return d.user })
}

// RequestData returns a copy of the request data attached to ctx.
func RequestData(ctx context.Context) map[string]interface{} {
	return dataFromContext(ctx).snapshot(func(d *reportData) map[string]interface{} { return d.request })
}

var noReportData = &reportData{}

func dataFromContext(ctx context.Context) *reportData {
	if ctx == nil {
		return noReportData
	}
	if data, ok := ctx.Value(reportDataCtxKey).(*reportData); ok {
		return data
	}
	return noReportData
}

func (d *reportData) merge(target *map[string]interface{}, kv map[string]interface{}) {
	if d == noReportData {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if *target == nil {
		*target = make(map[string]interface{}, len(kv))
	}
	for k, v := range kv {
		(*target)[k] = v
	}
}

func (d *reportData) snapshot(pick func(*reportData) map[string]interface{}) map[string]interface{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	source := pick(d)
	result := make(map[string]interface{}, len(source))
	for k, v := range source {
		result[k] = v
	}
	return result
}
