package logging

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/goliatone/go-order-tracker/pkg/interfaces"
)

type recordingLogger struct {
	fields   []map[string]any
	contexts []context.Context
}

func (r *recordingLogger) Trace(string, ...any) {}
func (r *recordingLogger) Debug(string, ...any) {}
func (r *recordingLogger) Info(string, ...any)  {}
func (r *recordingLogger) Warn(string, ...any)  {}
func (r *recordingLogger) Error(string, ...any) {}
func (r *recordingLogger) Fatal(string, ...any) {}

func (r *recordingLogger) WithFields(fields map[string]any) interfaces.Logger {
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	r.fields = append(r.fields, copied)
	return r
}

func (r *recordingLogger) WithContext(ctx context.Context) interfaces.Logger {
	r.contexts = append(r.contexts, ctx)
	return r
}

type stubProvider struct {
	requested []string
	logger    interfaces.Logger
}

func (s *stubProvider) GetLogger(name string) interfaces.Logger {
	s.requested = append(s.requested, name)
	return s.logger
}

func TestModuleLoggerFallsBackToNoOp(t *testing.T) {
	logger := ModuleLogger(nil, "tracker.test")
	if _, ok := logger.(noopLogger); !ok {
		t.Fatalf("expected noopLogger fallback, got %T", logger)
	}
	logger = logger.WithContext(context.Background())
	logger = WithFields(logger, map[string]any{"foo": "bar"})
	logger.Debug("noop")
}

func TestModuleLoggerUsesProviderAndAnnotatesFields(t *testing.T) {
	rec := &recordingLogger{}
	provider := &stubProvider{logger: rec}

	ProgressLogger(provider)

	if len(provider.requested) != 1 || provider.requested[0] != progressModule {
		t.Fatalf("expected module %s, got %v", progressModule, provider.requested)
	}
	if len(rec.fields) != 1 {
		t.Fatalf("expected module fields to be applied once, got %d", len(rec.fields))
	}
	if got := rec.fields[0]["module"]; got != progressModule {
		t.Fatalf("expected module field %s, got %v", progressModule, got)
	}
}

func TestModuleLoggerDefaultsBlankModuleToRoot(t *testing.T) {
	rec := &recordingLogger{}
	provider := &stubProvider{logger: rec}

	ModuleLogger(provider, "  ")

	if provider.requested[0] != rootModule {
		t.Fatalf("expected root module, got %q", provider.requested[0])
	}
}

func TestWithProgressContextSkipsNilIdentifiers(t *testing.T) {
	rec := &recordingLogger{}
	orderID := uuid.New()

	WithProgressContext(rec, orderID, uuid.Nil, uuid.Nil)

	if len(rec.fields) != 1 {
		t.Fatalf("expected one WithFields call, got %d", len(rec.fields))
	}
	fields := rec.fields[0]
	if fields[fieldOrderID] != orderID.String() {
		t.Fatalf("expected order_id %s, got %v", orderID, fields[fieldOrderID])
	}
	if _, ok := fields[fieldStageID]; ok {
		t.Fatal("expected stage_id to be omitted")
	}
	if _, ok := fields[fieldBatchID]; ok {
		t.Fatal("expected batch_id to be omitted")
	}
}

func TestContextFieldsMergeAndCopy(t *testing.T) {
	ctx := ContextWithFields(context.Background(), map[string]any{"batch_id": "b1"})
	ctx = ContextWithFields(ctx, map[string]any{"order_id": "o1"})

	fields := ContextFields(ctx)
	if fields["batch_id"] != "b1" || fields["order_id"] != "o1" {
		t.Fatalf("expected merged fields, got %v", fields)
	}

	fields["batch_id"] = "mutated"
	if ContextFields(ctx)["batch_id"] != "b1" {
		t.Fatal("expected ContextFields to return a copy")
	}
}
