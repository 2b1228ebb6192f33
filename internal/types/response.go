package types

import (
	"net/http"
	"strings"
	"time"
)

// Response holds a fetched payload.
type Response struct {
	// Request is the originating request.
	Request *Request

	// StatusCode is the HTTP status code.
	StatusCode int

	// Headers are the response headers.
	Headers http.Header

	// Body is the decoded response body.
	Body []byte

	// ContentType is the Content-Type header value.
	ContentType string

	// FetchDuration is how long the request took.
	FetchDuration time.Duration

	// FetchedAt is when the response was received.
	FetchedAt time.Time
}

// NewResponse creates a Response from an HTTP response.
func NewResponse(req *Request, httpResp *http.Response, body []byte, duration time.Duration) *Response {
	return &Response{
		Request:       req,
		StatusCode:    httpResp.StatusCode,
		Headers:       httpResp.Header,
		Body:          body,
		ContentType:   httpResp.Header.Get("Content-Type"),
		FetchDuration: duration,
		FetchedAt:     time.Now(),
	}
}

// IsSuccess returns true if the response status is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsServerError returns true if the response status is 5xx.
func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500 && r.StatusCode < 600
}

// IsJSON reports whether the server labelled the body as JSON.
func (r *Response) IsJSON() bool {
	return strings.Contains(r.ContentType, "json")
}
