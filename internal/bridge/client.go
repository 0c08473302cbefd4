package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"os"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Transport defines the host operations the session layer depends on.
// This interface is implemented by *Client and can be used for testing.
type Transport interface {
	FetchDocuments(ctx context.Context) ([]DocumentPayload, error)
	WriteLayerUpdates(ctx context.Context, path, name string, updates []LayerUpdate) error
	SaveDocuments(ctx context.Context) error
	CloseDocument(ctx context.Context, path, name string) error
	ActivateDocument(ctx context.Context, path, name string) error
	FetchLayerMarkup(ctx context.Context, path, name, layerID string) (string, error)
}

// Ensure Client implements Transport at compile time.
var _ Transport = (*Client)(nil)

// Client talks to the host editor over its local bridge socket. Each
// call dials the socket, performs one request/response exchange, and
// closes the connection. Calls are serialized; the host handles one
// command at a time.
type Client struct {
	socketPath string
	timeout    time.Duration

	mu      sync.Mutex
	entropy *rand.Rand
}

const (
	defaultSocketPath = "/tmp/krita_story_editor_bridge"
	requestTimeout    = 5 * time.Second
)

// NewClient builds a Client for the given socket path. An empty path
// selects the host's default bridge socket. A non-positive timeout
// selects the 5-second default.
func NewClient(socketPath string, timeout time.Duration) *Client {
	if socketPath == "" {
		socketPath = defaultSocketPath
	}
	if timeout <= 0 {
		timeout = requestTimeout
	}
	return &Client{
		socketPath: socketPath,
		timeout:    timeout,
		entropy:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// FetchDocuments retrieves every document open in the host, with the
// raw markup of each text layer.
func (c *Client) FetchDocuments(ctx context.Context) ([]DocumentPayload, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var data fetchDocumentsData
	if err := c.do(ctx, "fetch-all-documents", nil, &data); err != nil {
		return nil, err
	}
	return data.Documents, nil
}

// WriteLayerUpdates replaces the markup of one or more layers in a
// single host transaction.
func (c *Client) WriteLayerUpdates(ctx context.Context, path, name string, updates []LayerUpdate) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if len(updates) == 0 {
		return nil
	}
	payload := writeLayerUpdatesPayload{Path: path, Name: name, Updates: updates}
	return c.do(ctx, "write-layer-updates", payload, nil)
}

// SaveDocuments asks the host to save every open document.
func (c *Client) SaveDocuments(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	return c.do(ctx, "save-documents", nil, nil)
}

// CloseDocument asks the host to close one document.
func (c *Client) CloseDocument(ctx context.Context, path, name string) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	return c.do(ctx, "close-document", documentRefPayload{Path: path, Name: name}, nil)
}

// ActivateDocument brings one document to the front in the host.
func (c *Client) ActivateDocument(ctx context.Context, path, name string) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	return c.do(ctx, "activate-document", documentRefPayload{Path: path, Name: name}, nil)
}

// FetchLayerMarkup retrieves the current raw fragment of one layer.
func (c *Client) FetchLayerMarkup(ctx context.Context, path, name, layerID string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("client is nil")
	}
	var data layerMarkupData
	payload := layerRefPayload{Path: path, Name: name, LayerID: layerID}
	if err := c.do(ctx, "get-layer-raw-markup", payload, &data); err != nil {
		return "", err
	}
	return data.Markup, nil
}

// do performs one envelope exchange. The lock serializes calls so the
// single-threaded host never sees interleaved requests.
func (c *Client) do(ctx context.Context, action string, payload any, dest any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := ulid.MustNew(ulid.Timestamp(time.Now()), c.entropy).String()

	req := request{ID: id, Action: action}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", action, err)
		}
		req.Payload = raw
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	dialer := net.Dialer{Deadline: deadline}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return &Error{Kind: classifyDialError(err), Action: action, RequestID: id, cause: err}
	}
	defer func() { _ = conn.Close() }()

	if err := conn.SetDeadline(deadline); err != nil {
		return &Error{Kind: KindProtocol, Action: action, RequestID: id, cause: err}
	}

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return &Error{Kind: classifyIOError(err), Action: action, RequestID: id, cause: err}
	}

	var resp response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return &Error{Kind: classifyIOError(err), Action: action, RequestID: id, cause: err}
	}
	if !resp.Ok {
		return fmt.Errorf("host rejected %s: %s", action, resp.Error)
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Data, dest); err != nil {
		return &Error{Kind: KindProtocol, Action: action, RequestID: id, cause: err}
	}
	return nil
}

func classifyDialError(err error) Kind {
	if isTimeoutErr(err) {
		return KindTimeout
	}
	return KindNotConnected
}

func classifyIOError(err error) Kind {
	if isTimeoutErr(err) {
		return KindTimeout
	}
	return KindProtocol
}

func isTimeoutErr(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	return errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded)
}
