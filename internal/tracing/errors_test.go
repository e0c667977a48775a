package tracing

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// recordOneSpan 开启一个span，执行fn后结束，返回录制到的span数据
func recordOneSpan(t *testing.T, fn func(span trace.Span)) sdktrace.ReadOnlySpan {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	_, span := tp.Tracer("test").Start(context.Background(), "op")
	fn(span)
	span.End()
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	return spans[0]
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestRecordErrorSetsTypeAndStatus(t *testing.T) {
	err := errors.New("连接被拒绝")
	got := recordOneSpan(t, func(span trace.Span) {
		RecordError(span, err, ErrorTypeRedis)
	})

	assert.Equal(t, codes.Error, got.Status().Code)
	v, ok := attrValue(got.Attributes(), "error.type")
	require.True(t, ok)
	assert.Equal(t, "redis", v.AsString())
}

func TestRecordErrorWithInfoAddsExtraAttributes(t *testing.T) {
	err := errors.New("提取失败")
	got := recordOneSpan(t, func(span trace.Span) {
		RecordErrorWithInfo(span, err, ErrorTypeValidation,
			attribute.Int("resume.size_bytes", 2048))
	})

	v, ok := attrValue(got.Attributes(), "resume.size_bytes")
	require.True(t, ok)
	assert.Equal(t, int64(2048), v.AsInt64())
	v, ok = attrValue(got.Attributes(), "error.type")
	require.True(t, ok)
	assert.Equal(t, "validation", v.AsString())
}

func TestRecordHTTPErrorCategorizesByStatusCode(t *testing.T) {
	cases := []struct {
		statusCode int
		category   string
	}{
		{429, "client_error"},
		{503, "server_error"},
		{302, "unknown"},
	}

	for _, tc := range cases {
		err := errors.New("API调用失败")
		got := recordOneSpan(t, func(span trace.Span) {
			RecordHTTPError(span, err, tc.statusCode)
		})

		assert.Equal(t, codes.Error, got.Status().Code)
		v, ok := attrValue(got.Attributes(), "http.status_code")
		require.True(t, ok)
		assert.Equal(t, int64(tc.statusCode), v.AsInt64())
		v, ok = attrValue(got.Attributes(), "error.category")
		require.True(t, ok)
		assert.Equal(t, tc.category, v.AsString(), "状态码 %d", tc.statusCode)
	}
}

func TestRecordErrorNilSafe(t *testing.T) {
	// nil span和nil error都不触发任何记录
	RecordError(nil, errors.New("x"), ErrorTypeDB)
	RecordHTTPError(nil, errors.New("x"), 500)

	got := recordOneSpan(t, func(span trace.Span) {
		RecordError(span, nil, ErrorTypeDB)
		RecordHTTPError(span, nil, 500)
	})
	assert.Equal(t, codes.Unset, got.Status().Code)
}

func TestSafeOfferContentTruncatesLongText(t *testing.T) {
	long := strings.Repeat("岗", MaxOfferLength+50)
	safe := SafeOfferContent(long)
	assert.LessOrEqual(t, len([]rune(safe)), MaxOfferLength)
	assert.Contains(t, safe, "...")

	// 不超长的内容原样返回
	assert.Equal(t, "short offer", SafeOfferContent("short offer"))
}
