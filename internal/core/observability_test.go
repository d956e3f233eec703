package core

import (
	"bytes"
	"clinicdesk/pkg/domain"
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpvarMetricsRecorderAggregates(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	rec.clock = ClockFunc(func() time.Time { return fixedNow })

	rec.Observe(context.Background(), OpPull, true, 20*time.Millisecond)
	rec.Observe(context.Background(), OpPull, false, 5*time.Millisecond)
	rec.Observe(context.Background(), "", true, time.Second)

	snap := rec.Snapshot()
	require.Len(t, snap.Operations, 1)
	pull := snap.Operations[OpPull]
	assert.Equal(t, int64(1), pull.Success)
	assert.Equal(t, int64(1), pull.Error)
	assert.InDelta(t, 25.0, pull.TotalMS, 0.001)
	assert.Equal(t, fixedNow, snap.RecordedAt)

	last, ok := rec.LastSuccess(OpPull)
	require.True(t, ok)
	assert.Equal(t, fixedNow, last)
	_, ok = rec.LastSuccess(OpPush)
	assert.False(t, ok)

	published := expvar.Get(rec.Name())
	require.NotNil(t, published)
	var decoded ExpvarMetricsSnapshot
	require.NoError(t, json.Unmarshal([]byte(published.String()), &decoded))
	assert.Equal(t, int64(1), decoded.Operations[OpPull].Success)
}

func TestJSONTracerWritesOneLinePerSpan(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)

	_, span := tracer.Start(context.Background(), OpPush)
	span.End(nil)
	_, span = tracer.Start(context.Background(), OpMigrate)
	span.End(domain.BusyError{Operation: OpMigrate, Domains: []domain.DomainKey{domain.DomainNotices}})

	entries := tracer.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "success", entries[0].Status)
	assert.Empty(t, entries[0].ErrorKind)
	assert.Equal(t, "error", entries[1].Status)
	assert.Equal(t, "busy", entries[1].ErrorKind)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	var decoded JSONTraceEntry
	require.NoError(t, json.Unmarshal(lines[1], &decoded))
	assert.Equal(t, OpMigrate, decoded.Operation)
}

func findFamily(t *testing.T, families []*dto.MetricFamily, name string) *dto.MetricFamily {
	t.Helper()
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	t.Fatalf("metric family %s not gathered", name)
	return nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, l := range m.GetLabel() {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusRecorder(reg, "")
	require.NoError(t, err)

	rec.Observe(context.Background(), OpPush, true, 100*time.Millisecond)
	rec.Observe(context.Background(), OpPush, false, 200*time.Millisecond)
	rec.Observe(context.Background(), OpPush, true, 300*time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	for _, m := range findFamily(t, families, "clinicdesk_sync_operations_total").GetMetric() {
		counts[labelValue(m, "operation")+"/"+labelValue(m, "status")] = m.GetCounter().GetValue()
	}
	assert.Equal(t, map[string]float64{"push/success": 2, "push/error": 1}, counts)

	latency := findFamily(t, families, "clinicdesk_sync_operation_duration_seconds").GetMetric()
	require.Len(t, latency, 1)
	assert.Equal(t, uint64(3), latency[0].GetHistogram().GetSampleCount())
	assert.InDelta(t, 0.6, latency[0].GetHistogram().GetSampleSum(), 0.0001)

	_, err = NewPrometheusRecorder(reg, "")
	require.Error(t, err, "registering the same collectors twice must fail")
	_, err = NewPrometheusRecorder(reg, "other")
	require.NoError(t, err)
}

func TestErrorKind(t *testing.T) {
	cases := map[string]error{
		"":           nil,
		"busy":       fmt.Errorf("wrapped: %w", domain.BusyError{Operation: OpPush}),
		"timeout":    fmt.Errorf("%w: %w", ErrPullTimeout, context.DeadlineExceeded),
		"canceled":   context.Canceled,
		"empty":      ErrRemoteEmpty,
		"parse":      domain.ParseError{Reason: "bad"},
		"partial":    &domain.PartialMigrationError{Failed: map[domain.DomainKey]error{domain.DomainNotices: errors.New("x")}},
		"validation": domain.ValidationError{Domain: domain.DomainNotices, Field: "title", Reason: "required"},
		"not_found":  domain.NotFoundError{Domain: domain.DomainNotices, Kind: domain.KindItem, ID: "n1"},
		"io":         errors.New("connection reset"),
	}
	for want, err := range cases {
		assert.Equal(t, want, ErrorKind(err), "error %v", err)
	}
}

func TestNoopObservabilityIsSafe(t *testing.T) {
	ctx, span := noopTracer{}.Start(context.Background(), OpPull)
	span.End(errors.New("ignored"))
	noopMetrics{}.Observe(ctx, OpPull, false, time.Second)
	noopAudit{}.Record(ctx, AuditEntry{Operation: OpPull})
	var logger Logger = noopLogger{}
	logger.Debug("debug", "key", "value")
	logger.Info("info", "key", "value")
	logger.Warn("warn", "key", "value")
	logger.Error("error", "key", "value")
	assert.False(t, systemClock{}.Now().IsZero())
	assert.Equal(t, time.UTC, systemClock{}.Now().Location())
}
