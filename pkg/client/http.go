package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/clubworks/clubsync/pkg/cache"
	"github.com/clubworks/clubsync/pkg/coordinator"
	"github.com/clubworks/clubsync/pkg/syncqueue"
)

// requestURL renders a cache key as a concrete request URL: path parameter
// placeholders are substituted and query parameters appended.
func requestURL(baseURL string, key cache.Key) string {
	path := key.Endpoint
	for name, value := range key.PathParams {
		path = strings.ReplaceAll(path, "{"+name+"}", value)
	}
	u := baseURL + path
	if len(key.QueryParams) > 0 {
		u += "?" + key.QueryParams.Encode()
	}
	return u
}

// addConditionalHeader sets If-None-Match when a revalidation token is stored.
func addConditionalHeader(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("If-None-Match", token)
	}
}

// responseToResult converts a successful response into the coordinator's
// fetch result, capturing the payload and the ETag header.
func responseToResult(resp *http.Response) (*coordinator.FetchResult, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return &coordinator.FetchResult{
		Data: body,
		ETag: resp.Header.Get("ETag"),
	}, nil
}

// entityPath maps an entity name to its collection path.
func entityPath(entity string) string {
	return "/v1/" + entity + "s/"
}

// writeRequest maps a queued operation to its HTTP method, path, and body.
// Update and delete address the record by the "id" field of the payload.
func writeRequest(entity string, op syncqueue.Operation, payload json.RawMessage) (method, path string, body io.Reader, err error) {
	base := entityPath(entity)

	switch op {
	case syncqueue.OpCreate:
		return http.MethodPost, base, bytes.NewReader(payload), nil
	case syncqueue.OpUpdate:
		id, err := payloadID(payload)
		if err != nil {
			return "", "", nil, err
		}
		return http.MethodPut, base + id + "/", bytes.NewReader(payload), nil
	case syncqueue.OpDelete:
		id, err := payloadID(payload)
		if err != nil {
			return "", "", nil, err
		}
		return http.MethodDelete, base + id + "/", nil, nil
	default:
		return "", "", nil, fmt.Errorf("unknown operation %q", op)
	}
}

// payloadID extracts the record identifier from a write payload.
func payloadID(payload json.RawMessage) (string, error) {
	var probe struct {
		ID json.Number `json:"id"`
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&probe); err != nil {
		return "", fmt.Errorf("decode payload id: %w", err)
	}
	if probe.ID.String() == "" {
		return "", fmt.Errorf("payload has no id field")
	}
	return probe.ID.String(), nil
}
