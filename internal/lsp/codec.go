package lsp

// codec.go — Content-Length framed JSON-RPC 2.0 reading and writing.

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// ErrMissingContentLength is returned when a frame has no Content-Length header.
var ErrMissingContentLength = errors.New("missing Content-Length header")

// Codec reads and writes framed JSON-RPC messages on a byte stream.
type Codec struct {
	reader *bufio.Reader
	writer io.Writer
	mu     sync.Mutex // protects writer
	nextID atomic.Int64
}

func NewCodec(r io.Reader, w io.Writer) *Codec {
	c := &Codec{
		reader: bufio.NewReader(r),
		writer: w,
	}
	c.nextID.Store(1)
	return c
}

// Message is a decoded JSON-RPC envelope: a request, response, or notification.
type Message struct {
	ID     *int64          `json:"id,omitempty"`
	Method *string         `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ResponseError  `json:"error,omitempty"`
}

// IsResponse reports whether the message answers one of our requests.
func (m *Message) IsResponse() bool {
	return m.ID != nil && m.Method == nil
}

type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("LSP error %d: %s", e.Code, e.Message)
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
}

type notification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func (c *Codec) write(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := fmt.Fprintf(c.writer, "Content-Length: %d\r\n\r\n", len(data)); err != nil {
		return err
	}
	_, err = c.writer.Write(data)
	return err
}

// Read blocks until one full message has been read.
func (c *Codec) Read() (*Message, error) {
	contentLength := -1
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("parse Content-Length: %w", err)
		}
		contentLength = n
	}

	if contentLength < 0 {
		return nil, ErrMissingContentLength
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(c.reader, body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return &msg, nil
}

// NextID allocates a request id. Callers register the id before sending so
// a fast response cannot arrive unmatched.
func (c *Codec) NextID() int64 {
	return c.nextID.Add(1) - 1
}

// WriteRequest sends a request under an id from NextID.
func (c *Codec) WriteRequest(id int64, method string, params any) error {
	raw, err := marshalParams(params)
	if err != nil {
		return err
	}
	return c.write(&request{JSONRPC: "2.0", ID: id, Method: method, Params: raw})
}

// WriteNotification sends a message that expects no response.
func (c *Codec) WriteNotification(method string, params any) error {
	raw, err := marshalParams(params)
	if err != nil {
		return err
	}
	return c.write(&notification{JSONRPC: "2.0", Method: method, Params: raw})
}

// WriteResponse answers request id with result; a nil result is sent as null.
func (c *Codec) WriteResponse(id int64, result any) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return c.write(&response{JSONRPC: "2.0", ID: id, Result: raw})
}

func marshalParams(params any) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}
	return json.Marshal(params)
}
