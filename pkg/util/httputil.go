package util

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

var client = &http.Client{Timeout: 30 * time.Second}

// Response is the outcome of an http call.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// IsSuccess returns whether the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// NewHTTPRequest function builds and performs an http call
// @param method <string>: http method
// @param url <string>: URL http to call
// @param body <[]byte>: request body, ignored for GET and DELETE
// @return *Response, error
func NewHTTPRequest(
	ctx context.Context, method, url string, body []byte, header map[string]string,
) (*Response, error) {
	switch method {
	case http.MethodGet, http.MethodDelete:
		return do(ctx, method, url, nil, header)
	case http.MethodPost, http.MethodPut:
		return do(ctx, method, url, body, header)
	default:
		return nil, fmt.Errorf("verb not supported %s", method)
	}
}

func do(
	ctx context.Context, method, url string, body []byte, header map[string]string,
) (*Response, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, err
	}

	for key, value := range header {
		req.Header.Set(key, value)
	}

	rs, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer rs.Body.Close()

	bodyBytes, err := io.ReadAll(rs.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: rs.StatusCode,
		Body:       bodyBytes,
		Header:     rs.Header,
	}, nil
}
