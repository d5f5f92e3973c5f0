package schoolsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
)

// send marshals body (when non-nil) and sends the request through the
// dispatcher.
func (c *SDKClient) send(ctx context.Context, method, path string, body any, req *Request) (*http.Response, error) {
	if req == nil {
		req = &Request{}
	}
	req.Method = method
	req.Path = path

	if body != nil {
		switch b := body.(type) {
		case []byte:
			req.Body = b
		case json.RawMessage:
			req.Body = b
		default:
			data, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("failed to encode request: %w", err)
			}
			req.Body = data
		}
	}

	return c.dispatcher.Send(ctx, req)
}

// decodeJSON decodes a JSON response into target. Statuses outside
// expected become an *APIError.
func decodeJSON(resp *http.Response, target any, expected ...int) error {
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if !statusIn(resp.StatusCode, expected) {
		return parseErrorResponse(resp, bodyBytes)
	}

	if target == nil || len(bodyBytes) == 0 {
		return nil
	}
	if raw, ok := target.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], bodyBytes...)
		return nil
	}
	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// checkStatus closes resp and returns an *APIError unless its status is
// one of expected.
func checkStatus(resp *http.Response, expected ...int) error {
	defer resp.Body.Close()

	if !statusIn(resp.StatusCode, expected) {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return parseErrorResponse(resp, bodyBytes)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func statusIn(code int, expected []int) bool {
	if len(expected) == 0 {
		return code >= 200 && code < 300
	}
	return slices.Contains(expected, code)
}
