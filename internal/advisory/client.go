package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"hims.app/advisor/common/logger"
	"hims.app/advisor/internal/model"
)

const maxErrorBody = 512

type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// NewClient builds a client for the service at baseURL. A nil httpClient uses
// http.DefaultClient. timeout bounds each request; zero disables it.
func NewClient(baseURL string, timeout time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		timeout: timeout,
	}
}

func (c *Client) ValidateField(ctx context.Context, req model.FieldValidateRequest) (*model.FieldValidation, error) {
	var out model.FieldValidation
	if err := c.do(ctx, "field_validate", http.MethodPost, "/v1/ai/field-validate", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FetchHealth(ctx context.Context, scope model.Scope, bust bool) (*model.HealthSnapshot, error) {
	q := url.Values{"branchId": {scope.String()}}
	if bust {
		q.Set("bust", "1")
	}

	var out model.HealthSnapshot
	if err := c.do(ctx, "health_check", http.MethodGet, "/v1/ai/health-check", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FetchInsights(ctx context.Context, scope model.Scope, module string) (*model.InsightSet, error) {
	body := struct {
		Module   string `json:"module"`
		BranchID string `json:"branchId"`
	}{Module: module, BranchID: scope.String()}

	var out model.InsightSet
	if err := c.do(ctx, "page_insights", http.MethodPost, "/v1/ai/page-insights", nil, body, &out); err != nil {
		return nil, err
	}
	if out.Module == "" {
		out.Module = module
	}
	return &out, nil
}

func (c *Client) Chat(ctx context.Context, req model.ChatRequest) (*model.ChatReply, error) {
	var out model.ChatReply
	if err := c.do(ctx, "chat", http.MethodPost, "/v1/ai/chat", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) (err error) {
	sc := logger.StartSpan(ctx, "advisory."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		))
	defer func() {
		if err != nil && !IsCanceled(err) {
			sc.RecordError(err)
		}
		sc.End()
	}()
	ctx = sc.Context()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("advisory %s: marshal request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("advisory %s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("advisory %s: %w", op, err)
	}
	defer resp.Body.Close()
	sc.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("advisory %s: decode response: %w", op, err)
	}
	return nil
}
