package internal

import (
	"encoding/json"
	"net/http"
)

// Response is the value a handler or middleware produces. It is written to
// the wire only after the pipeline fully unwinds, so outer middleware
// observe the response of inner short-circuits before anything is sent.
type Response struct {
	// Status is the HTTP status code.
	Status int

	// Header holds response headers. May be nil for header-less responses.
	Header http.Header

	// Body is the response body. Nil means no body.
	Body []byte

	cookies []*http.Cookie
}

// NewResponse creates an empty response with the given status code.
func NewResponse(status int) *Response {
	return &Response{Status: status, Header: make(http.Header)}
}

// Text creates a plain-text response.
func Text(status int, body string) (*Response, error) {
	resp := NewResponse(status)
	resp.Header.Set("Content-Type", "text/plain; charset=utf-8")
	resp.Body = []byte(body)
	return resp, nil
}

// JSON creates a JSON response by marshaling v.
func JSON(status int, v any) (*Response, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	resp := NewResponse(status)
	resp.Header.Set("Content-Type", "application/json; charset=utf-8")
	resp.Body = data
	return resp, nil
}

// NoContent creates a body-less response.
func NoContent(status int) (*Response, error) {
	return NewResponse(status), nil
}

// RedirectTo creates a redirect response with a Location header.
func RedirectTo(status int, location string) (*Response, error) {
	resp := NewResponse(status)
	resp.Header.Set("Location", location)
	return resp, nil
}

// SetHeader sets a response header and returns the response for chaining.
func (resp *Response) SetHeader(name, value string) *Response {
	if resp.Header == nil {
		resp.Header = make(http.Header)
	}
	resp.Header.Set(name, value)
	return resp
}

// AddCookie queues a Set-Cookie header for the response.
func (resp *Response) AddCookie(c *http.Cookie) *Response {
	resp.cookies = append(resp.cookies, c)
	return resp
}

// write flushes the response to w: headers, cookies, status, then body.
func (resp *Response) write(w http.ResponseWriter) error {
	for name, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	for _, c := range resp.cookies {
		http.SetCookie(w, c)
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(resp.Body) > 0 {
		_, err := w.Write(resp.Body)
		return err
	}
	return nil
}
