// Package proxy implements the relay engine: buffered and streamed HTTP
// forwarding plus bidirectional WebSocket tunnels, with per-user byte
// accounting on every path.
package proxy

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/fasthttp/websocket"

	autherror "github.com/proxygate/proxygate/internal/errors"
)

// Recorder receives byte counts attributed to a user. Implementations must
// not block the relay path.
type Recorder interface {
	Record(userID int64, bytesSent, bytesReceived int64)
}

type Relay struct {
	client    *http.Client
	wsDialer  *websocket.Dialer
	recorder  Recorder
	userAgent string
}

func NewRelay(connectTimeout, readTimeout time.Duration, userAgent string, recorder Recorder) *Relay {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: connectTimeout,
		}).DialContext,
		ResponseHeaderTimeout: readTimeout,
		// Targets are chosen per-request by clients; certificate validation
		// is their concern, not the relay's.
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}

	return &Relay{
		// The client follows redirects transparently, which is the default.
		client: &http.Client{Transport: transport},
		wsDialer: &websocket.Dialer{
			HandshakeTimeout: connectTimeout,
			TLSClientConfig:  &tls.Config{InsecureSkipVerify: true},
		},
		recorder:  recorder,
		userAgent: userAgent,
	}
}

type Request struct {
	Method    string
	TargetURL string
	Header    http.Header
	Body      []byte
	UserID    int64
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Headers that must not cross the proxy boundary outbound. Accept-Encoding
// is dropped so the transport negotiates and transparently decodes
// compression itself, which is what lets the response pass through with
// Content-Encoding stripped.
var droppedRequestHeaders = []string{
	"Host",
	"Content-Length",
	"Connection",
	"Transfer-Encoding",
	"Accept-Encoding",
	"Authorization",
}

var droppedResponseHeaders = []string{
	"Content-Encoding",
	"Transfer-Encoding",
	"Connection",
	"Keep-Alive",
}

func (r *Relay) outboundHeader(in http.Header) http.Header {
	out := make(http.Header, len(in))
	for key, vals := range in {
		out[key] = vals
	}
	for _, key := range droppedRequestHeaders {
		out.Del(key)
	}
	out.Set("User-Agent", r.userAgent)
	return out
}

// FilterResponseHeader strips connection-management headers from an origin
// response before it is returned to the client. The body has already been
// decoded by the transport, so the original Content-Encoding would be wrong.
func FilterResponseHeader(in http.Header) http.Header {
	out := make(http.Header, len(in))
	for key, vals := range in {
		out[key] = vals
	}
	for _, key := range droppedResponseHeaders {
		out.Del(key)
	}
	return out
}

// Forward issues the proxied request and buffers the whole response. Byte
// counts are recorded unconditionally on any normal response.
func (r *Relay) Forward(ctx context.Context, req Request) (*Response, error) {
	outReq, err := http.NewRequestWithContext(ctx, req.Method, req.TargetURL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, err
	}
	outReq.Header = r.outboundHeader(req.Header)

	resp, err := r.client.Do(outReq)
	if err != nil {
		return nil, classifyUpstreamError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyUpstreamError(err)
	}

	r.recorder.Record(req.UserID, int64(len(req.Body)), int64(len(body)))

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     FilterResponseHeader(resp.Header),
		Body:       body,
	}, nil
}

// StreamedResponse is a live origin response whose body has not been read
// yet. The caller must invoke Relay (which closes the body) exactly once.
type StreamedResponse struct {
	StatusCode int
	Header     http.Header

	body      io.ReadCloser
	recorder  Recorder
	userID    int64
	bytesSent int64
}

// OpenStream issues the proxied request and hands the undrained response
// back so the body can be forwarded chunk by chunk.
func (r *Relay) OpenStream(ctx context.Context, req Request) (*StreamedResponse, error) {
	outReq, err := http.NewRequestWithContext(ctx, req.Method, req.TargetURL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, err
	}
	outReq.Header = r.outboundHeader(req.Header)

	resp, err := r.client.Do(outReq)
	if err != nil {
		return nil, classifyUpstreamError(err)
	}

	return &StreamedResponse{
		StatusCode: resp.StatusCode,
		Header:     FilterResponseHeader(resp.Header),
		body:       resp.Body,
		recorder:   r.recorder,
		userID:     req.UserID,
		bytesSent:  int64(len(req.Body)),
	}, nil
}

// Relay copies the origin body to w, accumulating the received byte count
// per chunk. Whatever was transferred is committed to the accountant when
// the stream ends, complete or not.
func (s *StreamedResponse) Relay(w io.Writer) error {
	defer s.body.Close()

	var received int64
	defer func() {
		s.recorder.Record(s.userID, s.bytesSent, received)
	}()

	buf := make([]byte, 32*1024)
	for {
		n, err := s.body.Read(buf)
		if n > 0 {
			received += int64(n)
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return classifyUpstreamError(err)
		}
	}
}

// classifyUpstreamError maps transport failures onto the relay taxonomy:
// timeouts (connect or read) and connect failures. Anything else passes
// through and is reported as a generic upstream failure by the boundary.
func classifyUpstreamError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", autherror.ErrUpstreamTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", autherror.ErrUpstreamTimeout, err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return fmt.Errorf("%w: %v", autherror.ErrUpstreamConnect, err)
	}

	return err
}
