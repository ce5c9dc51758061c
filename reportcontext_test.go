package checkend

import (
	"context"
	"sync"
	"testing"

	"github.com/checkend/checkend-go/internal/testutils"
)

func TestAttachReportData(t *testing.T) {
	ctx := context.Background()
	assertEqual(t, HasReportData(ctx), false)

	ctx = AttachReportData(ctx)
	assertEqual(t, HasReportData(ctx), true)
}

func TestSetAndReadReportData(t *testing.T) {
	ctx := AttachReportData(context.Background())

	SetContext(ctx, map[string]interface{}{"job": "import", "batch": 7})
	SetContext(ctx, map[string]interface{}{"batch": 8})
	SetUser(ctx, map[string]interface{}{"id": "u-1"})
	SetRequest(ctx, map[string]interface{}{"path": "/imports"})

	testutils.AssertMapsEqual(t, ContextData(ctx), map[string]interface{}{
		"job":   "import",
		"batch": 8,
	})
	testutils.AssertMapsEqual(t, UserData(ctx), map[string]interface{}{"id": "u-1"})
	testutils.AssertMapsEqual(t, RequestData(ctx), map[string]interface{}{"path": "/imports"})
}

func TestSettersWithoutAttachedDataAreNoOps(t *testing.T) {
	ctx := context.Background()

	SetContext(ctx, map[string]interface{}{"job": "import"})
	SetUser(ctx, map[string]interface{}{"id": "u-1"})

	assertEqual(t, len(ContextData(ctx)), 0)
	assertEqual(t, len(UserData(ctx)), 0)
	assertEqual(t, len(RequestData(ctx)), 0)

	// A nil context must not panic either.
	SetContext(nil, map[string]interface{}{"job": "import"}) //nolint:staticcheck
	assertEqual(t, len(ContextData(nil)), 0)                 //nolint:staticcheck
}

func TestReportDataIsScopedToItsContext(t *testing.T) {
	first := AttachReportData(context.Background())
	second := AttachReportData(context.Background())

	SetUser(first, map[string]interface{}{"id": "first"})
	SetUser(second, map[string]interface{}{"id": "second"})

	assertEqual(t, UserData(first)["id"], "first")
	assertEqual(t, UserData(second)["id"], "second")
}

func TestReattachReplacesReportData(t *testing.T) {
	outer := AttachReportData(context.Background())
	SetContext(outer, map[string]interface{}{"stage": "outer"})

	inner := AttachReportData(outer)
	assertEqual(t, len(ContextData(inner)), 0)

	SetContext(inner, map[string]interface{}{"stage": "inner"})
	assertEqual(t, ContextData(outer)["stage"], "outer")
	assertEqual(t, ContextData(inner)["stage"], "inner")
}

func TestReadersReturnCopies(t *testing.T) {
	ctx := AttachReportData(context.Background())
	SetContext(ctx, map[string]interface{}{"job": "import"})

	snapshot := ContextData(ctx)
	snapshot["job"] = "tampered"

	assertEqual(t, ContextData(ctx)["job"], "import")
}

func TestConcurrentReportDataAccess(t *testing.T) {
	ctx := AttachReportData(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetContext(ctx, map[string]interface{}{"job": "import"})
		}()
		go func() {
			defer wg.Done()
			_ = ContextData(ctx)
		}()
	}
	wg.Wait()

	assertEqual(t, ContextData(ctx)["job"], "import")
}
