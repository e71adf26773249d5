package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/prappser/prappser_upload/internal/protocol"
	"github.com/valyala/fasthttp"
)

const defaultRequestTimeout = 5 * time.Minute

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Path, e.StatusCode, e.Message)
}

// HTTPTransport speaks the upload protocol over fasthttp.
type HTTPTransport struct {
	baseURL string
	client  *fasthttp.Client
	timeout time.Duration
}

// NewHTTPTransport targets the server at baseURL. A nil client selects a
// default fasthttp.Client.
func NewHTTPTransport(baseURL string, client *fasthttp.Client, timeout time.Duration) *HTTPTransport {
	if client == nil {
		client = &fasthttp.Client{
			Name:                      "prappser-upload",
			ReadTimeout:               defaultRequestTimeout,
			WriteTimeout:              defaultRequestTimeout,
			MaxIdemponentCallAttempts: 1,
		}
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		timeout: timeout,
	}
}

func (t *HTTPTransport) Verify(ctx context.Context, req *protocol.VerifyRequest) (*protocol.VerifyResponse, error) {
	var response protocol.VerifyResponse
	if err := t.postJSON(ctx, protocol.PathVerify, req, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func (t *HTTPTransport) Merge(ctx context.Context, req *protocol.MergeRequest) (*protocol.MergeResponse, error) {
	var response protocol.MergeResponse
	if err := t.postJSON(ctx, protocol.PathMerge, req, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func (t *HTTPTransport) UploadChunk(ctx context.Context, fingerprint string, index int, suffix string, body io.Reader, size int64, onProgress func(sent int64)) error {
	head, tail, contentType, err := multipartEnvelope(protocol.ChunkID(fingerprint, index), suffix)
	if err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(t.baseURL + protocol.PathChunk)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType(contentType)

	payload := &countingReader{r: io.LimitReader(body, size), onProgress: onProgress}
	req.SetBodyStream(io.MultiReader(bytes.NewReader(head), payload, bytes.NewReader(tail)), len(head)+int(size)+len(tail))

	if err := t.do(ctx, req, resp); err != nil {
		return err
	}
	if err := checkStatus(protocol.PathChunk, resp); err != nil {
		return err
	}
	if sent := atomic.LoadInt64(&payload.n); sent != size {
		return fmt.Errorf("chunk %d: sent %d of %d bytes", index, sent, size)
	}
	return nil
}

func (t *HTTPTransport) postJSON(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(t.baseURL + path)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

	if err := t.do(ctx, req, resp); err != nil {
		return err
	}
	if err := checkStatus(path, resp); err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%s: invalid response: %w", path, err)
	}
	return nil
}

// do bounds the request by the earlier of ctx's deadline and the
// transport timeout.
func (t *HTTPTransport) do(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	deadline := time.Now().Add(t.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	return t.client.DoDeadline(req, resp, deadline)
}

func checkStatus(path string, resp *fasthttp.Response) error {
	code := resp.StatusCode()
	if code >= 200 && code < 300 {
		return nil
	}

	message := strings.TrimSpace(string(resp.Body()))
	var failure protocol.MergeResponse
	if json.Unmarshal(resp.Body(), &failure) == nil && failure.Error != "" {
		message = failure.Error
	}
	return &StatusError{Path: path, StatusCode: code, Message: message}
}

// multipartEnvelope renders everything of a chunk upload form except the
// chunk bytes, so the body can be streamed with a known length.
func multipartEnvelope(chunkID, suffix string) (head, tail []byte, contentType string, err error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField(protocol.FormFieldHash, chunkID); err != nil {
		return nil, nil, "", err
	}
	if err := w.WriteField(protocol.FormFieldSuffix, suffix); err != nil {
		return nil, nil, "", err
	}
	if _, err := w.CreateFormFile(protocol.FormFieldChunk, chunkID); err != nil {
		return nil, nil, "", err
	}
	head = bytes.Clone(buf.Bytes())

	buf.Reset()
	if err := w.Close(); err != nil {
		return nil, nil, "", err
	}
	tail = bytes.Clone(buf.Bytes())

	return head, tail, w.FormDataContentType(), nil
}

type countingReader struct {
	r          io.Reader
	n          int64
	onProgress func(sent int64)
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		sent := atomic.AddInt64(&c.n, int64(n))
		if c.onProgress != nil {
			c.onProgress(sent)
		}
	}
	return n, err
}
