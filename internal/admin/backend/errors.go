package backend

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// APIError is a non-2xx answer from the REST API.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e == nil {
		return "backend: request failed"
	}
	if e.Detail == "" {
		return fmt.Sprintf("backend: status %d", e.Status)
	}
	return fmt.Sprintf("backend: status %d: %s", e.Status, e.Detail)
}

// Temporary reports whether retrying later could succeed.
func (e *APIError) Temporary() bool {
	return e != nil && (e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError)
}

// decodeAPIError reads the error body. The API answers {"detail": "..."} for domain
// errors and {"detail": [{"msg": "..."}]} for request validation failures.
func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	body := strings.TrimSpace(string(raw))
	if body == "" {
		apiErr.Detail = http.StatusText(resp.StatusCode)
		return apiErr
	}

	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || len(envelope.Detail) == 0 {
		apiErr.Detail = body
		return apiErr
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		apiErr.Detail = strings.TrimSpace(text)
		return apiErr
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil && len(items) > 0 {
		messages := make([]string, 0, len(items))
		for _, item := range items {
			if msg := strings.TrimSpace(item.Msg); msg != "" {
				messages = append(messages, msg)
			}
		}
		apiErr.Detail = strings.Join(messages, "; ")
		return apiErr
	}

	apiErr.Detail = string(envelope.Detail)
	return apiErr
}
