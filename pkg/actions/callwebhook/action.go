// Package callwebhook performs an HTTP request to a configured URL with a
// templated JSON body and a bounded retry policy.
package callwebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dealerdesk/automation/pkg/models"
	"github.com/dealerdesk/automation/pkg/protocol"
	"github.com/dealerdesk/automation/pkg/template"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultAttempts = 3
	maxAttempts     = 10
	maxErrorBody    = 2048
)

// RetryConfig bounds the retry loop. Transport errors and 5xx responses are
// retried; 4xx responses are not.
type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

type Action struct {
	client  *http.Client
	url     string
	method  string
	headers map[string]string
	body    string
	timeout time.Duration
	retry   RetryConfig
}

func NewAction(client *http.Client, config map[string]any) (*Action, error) {
	url, _ := config["url"].(string)
	if url == "" {
		return nil, protocol.NewConfigError("url", "a webhook URL is required")
	}

	method, _ := config["method"].(string)
	if method == "" {
		method = http.MethodPost
	}

	body, _ := config["body"].(string)

	headers := make(map[string]string)
	if headersConfig, ok := config["headers"].(map[string]any); ok {
		for key, value := range headersConfig {
			if strVal, ok := value.(string); ok {
				headers[key] = strVal
			}
		}
	}

	timeout := defaultTimeout
	if timeoutSeconds, ok := config["timeout_seconds"].(float64); ok && timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}

	retry := RetryConfig{Attempts: defaultAttempts}
	if retryConfig, ok := config["retry"].(map[string]any); ok {
		if attempts, ok := retryConfig["attempts"].(float64); ok && attempts > 0 {
			retry.Attempts = int(attempts)
		}

		if delaySeconds, ok := retryConfig["delay_seconds"].(float64); ok && delaySeconds > 0 {
			retry.Delay = time.Duration(delaySeconds) * time.Second
		}
	}

	if retry.Attempts > maxAttempts {
		retry.Attempts = maxAttempts
	}

	if client == nil {
		client = http.DefaultClient
	}

	return &Action{
		client:  client,
		url:     url,
		method:  strings.ToUpper(method),
		headers: headers,
		body:    body,
		timeout: timeout,
		retry:   retry,
	}, nil
}

func (a *Action) Execute(ctx context.Context, ectx *models.EventContext) (map[string]any, error) {
	body, err := a.renderBody(ectx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve webhook body: %w", err)
	}

	url, err := template.RenderString(a.url, ectx.Data())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve webhook URL: %w", err)
	}

	var (
		lastErr    error
		statusCode int
		respBody   []byte
	)

	for attempt := 1; attempt <= a.retry.Attempts; attempt++ {
		if attempt > 1 && a.retry.Delay > 0 {
			select {
			case <-time.After(a.retry.Delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		statusCode, respBody, lastErr = a.doRequest(ctx, url, body)
		if lastErr != nil {
			continue
		}

		if statusCode >= http.StatusInternalServerError {
			lastErr = fmt.Errorf("webhook returned status %d: %s", statusCode, truncate(respBody))

			continue
		}

		break
	}

	if lastErr != nil {
		return nil, fmt.Errorf("webhook failed after %d attempts: %w", a.retry.Attempts, lastErr)
	}

	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("webhook returned status %d: %s", statusCode, truncate(respBody))
	}

	return map[string]any{
		"status_code": statusCode,
		"body":        string(respBody),
		"url":         url,
	}, nil
}

func (a *Action) doRequest(ctx context.Context, url, body string) (int, []byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(reqCtx, a.method, url, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	for key, value := range a.headers {
		req.Header.Set(key, value)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read webhook response: %w", err)
	}

	return resp.StatusCode, respBody, nil
}

// renderBody templates the configured body, or serializes the event itself
// when no body is configured.
func (a *Action) renderBody(ectx *models.EventContext) (string, error) {
	if a.body == "" {
		payload, err := json.Marshal(map[string]any{
			"event":  ectx.Event,
			"entity": ectx.Primary(),
		})
		if err != nil {
			return "", err
		}

		return string(payload), nil
	}

	return template.RenderString(a.body, ectx.Data())
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}

	return string(body)
}
