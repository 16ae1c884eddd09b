package remote

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/tgienger/pulse/internal/remote"

type request struct {
	method  string
	url     string
	span    string
	headers map[string]string
	body    any
	out     any
	attrs   []attribute.KeyValue
}

// send performs one JSON round trip inside a span.
// Error statuses are decoded into *APIError.
func send(ctx context.Context, hc *http.Client, r request) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, r.span,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(r.attrs, attribute.String("http.request.method", r.method))...),
	)
	defer span.End()

	err := roundTrip(ctx, hc, r, span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func roundTrip(ctx context.Context, hc *http.Client, r request, span trace.Span) error {
	var body io.Reader
	if r.body != nil {
		payload, err := sonic.Marshal(r.body)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		if len(data) > 0 && sonic.Unmarshal(data, apiErr) == nil && apiErr.Message != "" {
			return apiErr
		}
		apiErr.Message = strings.TrimSpace(string(data))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if r.out != nil && len(bytes.TrimSpace(data)) > 0 {
		return sonic.Unmarshal(data, r.out)
	}
	return nil
}
