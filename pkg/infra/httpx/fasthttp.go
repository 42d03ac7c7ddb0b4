package httpx

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
)

const (
	DefaultTimeout             = 5 * time.Second
	DefaultMaxConnsPerHost     = 64
	DefaultMaxResponseBodySize = 1 << 20
	DefaultUserAgent           = "trustshield"
)

type fastHTTPOptions struct {
	timeout   time.Duration
	maxConns  int
	userAgent string
}

type FastHTTPClientOption func(*fastHTTPOptions)

func WithTimeout(timeout time.Duration) FastHTTPClientOption {
	return func(o *fastHTTPOptions) {
		o.timeout = timeout
	}
}

func WithMaxConnsPerHost(n int) FastHTTPClientOption {
	return func(o *fastHTTPOptions) {
		o.maxConns = n
	}
}

func WithUserAgent(userAgent string) FastHTTPClientOption {
	return func(o *fastHTTPOptions) {
		o.userAgent = userAgent
	}
}

type fastHTTPClient struct {
	client    *fasthttp.Client
	timeout   time.Duration
	userAgent string
}

// NewFastHTTPClient adapts a fasthttp client to the net/http Client
// interface used by outbound notifiers.
func NewFastHTTPClient(opts ...FastHTTPClientOption) Client {
	o := &fastHTTPOptions{
		timeout:   DefaultTimeout,
		maxConns:  DefaultMaxConnsPerHost,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(o)
	}
	return &fastHTTPClient{
		client: &fasthttp.Client{
			MaxConnsPerHost:     o.maxConns,
			ReadTimeout:         o.timeout,
			WriteTimeout:        o.timeout,
			MaxResponseBodySize: DefaultMaxResponseBodySize,
		},
		timeout:   o.timeout,
		userAgent: o.userAgent,
	}
}

func (c *fastHTTPClient) Do(req *http.Request) (*http.Response, error) {
	fastReq := fasthttp.AcquireRequest()
	fastResp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(fastReq)
	defer fasthttp.ReleaseResponse(fastResp)

	fastReq.SetRequestURI(req.URL.String())
	fastReq.Header.SetMethod(req.Method)
	for key, values := range req.Header {
		for _, v := range values {
			fastReq.Header.Add(key, v)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		fastReq.Header.SetUserAgent(c.userAgent)
	}
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		fastReq.SetBodyRaw(body)
	}

	timeout := c.timeout
	if deadline, ok := req.Context().Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if err := c.client.DoTimeout(fastReq, fastResp, timeout); err != nil {
		return nil, err
	}

	// fastResp is released on return, so the body must be copied.
	body := append([]byte(nil), fastResp.Body()...)
	headers := make(http.Header)
	fastResp.Header.VisitAll(func(key, value []byte) {
		headers.Add(string(key), string(value))
	})
	status := fastResp.StatusCode()
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        headers,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}, nil
}
