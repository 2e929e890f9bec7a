package metrics

import (
	"context"
	"fmt"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// StartTransaction starts a New Relic transaction for a top level operation
// and returns a context carrying it. The returned end function must always be
// called. Without an application in ctx, both are no-ops.
func StartTransaction(ctx context.Context, name string) (context.Context, func()) {
	nr, ok := ApplicationFromContext(ctx)
	if !ok || newrelic.FromContext(ctx) != nil {
		return ctx, func() {}
	}

	txn := nr.StartTransaction(name)
	return newrelic.NewContext(ctx, txn), txn.End
}

// TraceMethodCall starts a segment for a method call within the transaction
// in ctx. Without one, a nil tracer is returned, and every MethodTracer
// method is a no-op on it.
func TraceMethodCall(ctx context.Context, structOrPackageName, methodName string) *MethodTracer {
	txn := newrelic.FromContext(ctx)
	if txn == nil {
		return nil
	}

	return &MethodTracer{
		txn: txn,
		seg: txn.StartSegment(fmt.Sprintf("%s %s", structOrPackageName, methodName)),
	}
}

// MethodTracer records a single method call as a New Relic segment.
type MethodTracer struct {
	txn *newrelic.Transaction
	seg *newrelic.Segment
}

// AddAttribute annotates the segment.
func (t *MethodTracer) AddAttribute(key string, value interface{}) {
	if t == nil {
		return
	}

	t.seg.AddAttribute(key, value)
}

// OnError reports a non-nil err against the enclosing transaction.
func (t *MethodTracer) OnError(err error) {
	if t == nil || err == nil {
		return
	}

	t.txn.NoticeError(err)
}

// End completes the segment.
func (t *MethodTracer) End() {
	if t == nil {
		return
	}

	t.seg.End()
}
