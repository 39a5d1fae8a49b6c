package lsp

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
)

// Connection reads and writes base-protocol framed messages.
type Connection struct {
	reader *bufio.Reader
	writer io.Writer
	logger *slog.Logger

	// guards writer
	mu sync.Mutex
}

// NewConnection creates a new LSP connection
func NewConnection(reader io.Reader, writer io.Writer, logger *slog.Logger) *Connection {
	return &Connection{
		reader: bufio.NewReader(reader),
		writer: writer,
		logger: logger,
	}
}

// ReadMessage reads one message. It returns io.EOF when the peer closed
// the stream between messages.
func (c *Connection) ReadMessage() (*Message, error) {
	headers := make(map[string]string)
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF && len(headers) == 0 && line == "" {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("read header: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			if len(headers) == 0 {
				continue
			}
			break
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		headers[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}

	lengthStr, ok := headers["content-length"]
	if !ok {
		return nil, fmt.Errorf("missing Content-Length header")
	}
	length, err := strconv.Atoi(lengthStr)
	if err != nil || length < 0 {
		return nil, fmt.Errorf("invalid Content-Length %q", lengthStr)
	}

	content := make([]byte, length)
	if _, err := io.ReadFull(c.reader, content); err != nil {
		return nil, fmt.Errorf("failed to read message content: %w", err)
	}

	var message Message
	if err := json.Unmarshal(content, &message); err != nil {
		return nil, fmt.Errorf("failed to parse JSON message: %w", err)
	}
	c.logger.Debug("received message", "method", message.Method, "id", message.ID)
	return &message, nil
}

// WriteMessage writes an LSP message to the connection
func (c *Connection) WriteMessage(message *Message) error {
	content, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintf(c.writer, "Content-Length: %d\r\n\r\n", len(content)); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	if _, err := c.writer.Write(content); err != nil {
		return fmt.Errorf("failed to write content: %w", err)
	}
	c.logger.Debug("sent message", "method", message.Method, "id", message.ID, "bytes", len(content))
	return nil
}
