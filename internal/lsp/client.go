package lsp

// client.go — language-server subprocess client: request/response matching and notification dispatch.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"sync"
)

// ErrClosed is returned for requests that cannot complete because the
// server connection is gone.
var ErrClosed = errors.New("language server connection closed")

// Client talks to one language server.
type Client struct {
	name  string
	cmd   *exec.Cmd
	codec *Codec
	out   io.Closer

	// Pending request responses, keyed by ID.
	pending   map[int64]chan *Message
	pendingMu sync.Mutex

	// Notification handlers.
	handlers   map[string]func(json.RawMessage)
	handlersMu sync.RWMutex

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Start launches command with args and connects to it over stdio.
func Start(command string, args ...string) (*Client, error) {
	cmd := exec.Command(command, args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", command, err)
	}

	c := NewClient(command, stdout, stdin)
	c.cmd = cmd
	return c, nil
}

// NewClient connects to a server already reachable through r and w.
func NewClient(name string, r io.Reader, w io.WriteCloser) *Client {
	c := &Client{
		name:     name,
		codec:    NewCodec(r, w),
		out:      w,
		pending:  make(map[int64]chan *Message),
		handlers: make(map[string]func(json.RawMessage)),
		done:     make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		msg, err := c.codec.Read()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("%s read error: %v", c.name, err)
			}
			return
		}

		switch {
		case msg.IsResponse():
			c.pendingMu.Lock()
			ch, ok := c.pending[*msg.ID]
			delete(c.pending, *msg.ID)
			c.pendingMu.Unlock()
			if ok {
				ch <- msg
			}
		case msg.ID != nil:
			// Server-to-client request. We advertise no client capabilities,
			// so answer with an empty result to keep the server moving.
			if err := c.codec.WriteResponse(*msg.ID, emptyResult(*msg.Method, msg.Params)); err != nil {
				log.Printf("%s reply to %s: %v", c.name, *msg.Method, err)
			}
		case msg.Method != nil:
			c.handlersMu.RLock()
			handler, ok := c.handlers[*msg.Method]
			c.handlersMu.RUnlock()
			if ok {
				handler(msg.Params)
			}
		}
	}
}

// emptyResult is the reply to a server-to-client request we do not handle.
// workspace/configuration needs one entry per requested item.
func emptyResult(method string, params json.RawMessage) any {
	if method != "workspace/configuration" {
		return nil
	}
	var p struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return []any{}
	}
	return make([]any, len(p.Items))
}

// Request sends method and waits for its response.
func (c *Client) Request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := c.codec.NextID()
	ch := make(chan *Message, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()

	forget := func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}

	if err := c.codec.WriteRequest(id, method, params); err != nil {
		forget()
		return nil, err
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	case <-ctx.Done():
		forget()
		return nil, ctx.Err()
	case <-c.done:
		forget()
		return nil, ErrClosed
	}
}

// Notify sends a notification.
func (c *Client) Notify(method string, params any) error {
	return c.codec.WriteNotification(method, params)
}

// OnNotification registers handler for a server notification method,
// replacing any earlier one. Handlers run on the read goroutine.
func (c *Client) OnNotification(method string, handler func(json.RawMessage)) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.handlers[method] = handler
}

// Initialize performs the initialize/initialized handshake.
func (c *Client) Initialize(ctx context.Context, rootURI string) error {
	params := map[string]any{
		"processId": os.Getpid(),
		"rootUri":   rootURI,
		"capabilities": map[string]any{
			"textDocument": map[string]any{
				"publishDiagnostics": map[string]any{
					"relatedInformation": true,
					"tagSupport":         map[string]any{"valueSet": []int{1, 2}},
				},
			},
		},
	}

	if _, err := c.Request(ctx, "initialize", params); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	if err := c.Notify("initialized", map[string]any{}); err != nil {
		return fmt.Errorf("initialized: %w", err)
	}
	return nil
}

// Shutdown sends shutdown and exit, then closes the connection. The
// connection is closed and the process reaped even when the server does not
// answer.
func (c *Client) Shutdown(ctx context.Context) error {
	if _, err := c.Request(ctx, "shutdown", nil); err != nil {
		return errors.Join(fmt.Errorf("shutdown: %w", err), c.close(true))
	}
	if err := c.Notify("exit", nil); err != nil {
		return errors.Join(fmt.Errorf("exit: %w", err), c.close(true))
	}
	return c.close(false)
}

// Close drops the connection without the shutdown handshake, killing the
// process if we started it.
func (c *Client) Close() error {
	return c.close(true)
}

func (c *Client) close(kill bool) error {
	c.closeOnce.Do(func() {
		c.closeErr = c.out.Close()
		if c.cmd == nil {
			return
		}
		if kill && c.cmd.Process != nil {
			c.cmd.Process.Kill()
		}
		if err := c.cmd.Wait(); err != nil && !kill {
			c.closeErr = errors.Join(c.closeErr, err)
		}
	})
	return c.closeErr
}
