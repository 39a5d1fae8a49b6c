// Package lsp serves shortfunc to editors over the Language Server
// Protocol: overlong functions are published as diagnostics and their
// ranked extractions are offered as code actions.
package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/mamaar/shortfunc/pkg/analysis"
	"github.com/mamaar/shortfunc/pkg/config"
	"github.com/mamaar/shortfunc/pkg/refactor"
)

const (
	serverName = "shortfunc-lsp"

	// KindExtractFunction is the kind of every code action the server
	// offers.
	KindExtractFunction = "refactor.extract.function"

	diagnosticSource = "shortfunc"
	diagnosticCode   = "overlong"

	// code actions offered per request
	maxActions = 5
)

// Server represents the LSP server
type Server struct {
	mu           sync.RWMutex
	cfg          *config.Config
	driver       *refactor.Driver
	logger       *slog.Logger
	version      string
	rootPath     string
	initialized  bool
	shutdown     bool
	docs         map[string]*document // by URI
	capabilities ServerCapabilities
}

// document is the editor's copy of an open file.
type document struct {
	version int
	text    []byte
}

// NewServer creates a server refactoring with the thresholds of cfg. A
// config file at the root of the workspace the client opens replaces cfg.
func NewServer(cfg *config.Config, version string, logger *slog.Logger) *Server {
	s := &Server{
		logger:  logger,
		version: version,
		docs:    make(map[string]*document),
		capabilities: ServerCapabilities{
			CodeActionProvider: &CodeActionOptions{
				CodeActionKinds: []string{KindExtractFunction},
			},
			TextDocumentSync: &TextDocumentSyncOptions{
				OpenClose: true,
				Change:    TextDocumentSyncKindFull,
				Save:      &SaveOptions{IncludeText: true},
			},
		},
	}
	s.configure(cfg)
	return s
}

func (s *Server) configure(cfg *config.Config) {
	s.cfg = cfg
	s.driver = refactor.NewDriver(analysis.NewParser(s.logger), cfg.RefactorOptions(), nil, s.logger)
}

// Start serves on stdio when port is 0 and on TCP otherwise.
func (s *Server) Start(ctx context.Context, port int) error {
	if port == 0 {
		return s.ServeStdio(ctx)
	}
	return s.ServeTCP(ctx, port)
}

// ServeStdio serves the LSP over stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	s.logger.Info("starting LSP server", "transport", "stdio")
	return s.serve(ctx, os.Stdin, os.Stdout)
}

// ServeTCP accepts connections on port until ctx is done. Every
// connection is served concurrently against the same document store.
func (s *Server) ServeTCP(ctx context.Context, port int) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", port, err)
	}
	defer listener.Close()
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Info("starting LSP server", "transport", "tcp", "addr", listener.Addr().String())
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("failed to accept connection", "error", err)
			continue
		}

		go func() {
			defer conn.Close()
			if err := s.serve(ctx, conn, conn); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("error serving connection", "remote", conn.RemoteAddr().String(), "error", err)
			}
		}()
	}
}

// serve runs the message loop until the client sends exit, closes the
// stream or ctx is done.
func (s *Server) serve(ctx context.Context, reader io.Reader, writer io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	conn := NewConnection(reader, writer, s.logger)

	messages := make(chan *Message)
	readErr := make(chan error, 1)
	go func() {
		for {
			message, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case messages <- message:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				s.logger.Info("connection closed")
				return nil
			}
			return fmt.Errorf("failed to read message: %w", err)
		case message := <-messages:
			if message.Method == "exit" {
				s.logger.Info("exit requested")
				return nil
			}
			response, err := s.handleMessage(ctx, message)
			if err != nil {
				s.logger.Warn("error handling message", "method", message.Method, "error", err)
				if message.ID == nil {
					continue
				}
				response = s.errorResponse(message.ID, CodeInternalError, err.Error(), nil)
			}
			if response == nil {
				continue
			}
			if err := conn.WriteMessage(response); err != nil {
				return fmt.Errorf("failed to write response: %w", err)
			}
		}
	}
}

// handleMessage dispatches message. The returned message is a response
// for requests and at most one notification for notifications.
func (s *Server) handleMessage(ctx context.Context, message *Message) (*Message, error) {
	if s.isShutdown() && message.Method != "shutdown" && message.ID != nil {
		return s.errorResponse(message.ID, CodeInvalidRequest, "server is shut down", nil), nil
	}

	switch message.Method {
	case "initialize":
		return s.handleInitialize(message)
	case "initialized":
		return s.handleInitialized(message)
	case "shutdown":
		return s.handleShutdown(message)
	case "textDocument/didOpen":
		return s.handleTextDocumentDidOpen(message)
	case "textDocument/didChange":
		return s.handleTextDocumentDidChange(message)
	case "textDocument/didSave":
		return s.handleTextDocumentDidSave(message)
	case "textDocument/didClose":
		return s.handleTextDocumentDidClose(message)
	case "textDocument/codeAction":
		return s.handleTextDocumentCodeAction(ctx, message)
	default:
		if message.ID == nil {
			s.logger.Debug("ignoring notification", "method", message.Method)
			return nil, nil
		}
		return s.errorResponse(message.ID, CodeMethodNotFound, "method not found: "+message.Method, nil), nil
	}
}

func (s *Server) handleInitialize(message *Message) (*Message, error) {
	var params InitializeParams
	if err := json.Unmarshal(message.Params, &params); err != nil {
		return s.errorResponse(message.ID, CodeInvalidParams, "Invalid params", err.Error()), nil
	}

	s.mu.Lock()
	s.rootPath = params.RootPath
	if params.RootURI != "" {
		s.rootPath = uriToPath(params.RootURI)
	}
	if s.rootPath != "" {
		s.loadWorkspaceConfig()
	}
	root, source := s.rootPath, s.cfg.Source()
	s.mu.Unlock()

	s.logger.Info("initialize", "root", root, "config", source)
	result := InitializeResult{
		Capabilities: s.capabilities,
		ServerInfo: &ServerInfo{
			Name:    serverName,
			Version: s.version,
		},
	}
	return s.successResponse(message.ID, result), nil
}

// loadWorkspaceConfig switches to the config file at the workspace root,
// if there is one. Callers hold s.mu.
func (s *Server) loadWorkspaceConfig() {
	path := filepath.Join(s.rootPath, config.FileName)
	if _, err := os.Stat(path); err != nil {
		return
	}
	cfg, err := config.Load(path, nil)
	if err != nil {
		s.logger.Warn("ignoring workspace config", "file", path, "error", err)
		return
	}
	s.configure(cfg)
}

func (s *Server) handleInitialized(*Message) (*Message, error) {
	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()
	return nil, nil
}

func (s *Server) handleShutdown(message *Message) (*Message, error) {
	s.mu.Lock()
	s.initialized = false
	s.shutdown = true
	clear(s.docs)
	s.mu.Unlock()

	return s.successResponse(message.ID, json.RawMessage("null")), nil
}

func (s *Server) isShutdown() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shutdown
}

func (s *Server) successResponse(id any, result any) *Message {
	return &Message{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}
}

func (s *Server) errorResponse(id any, code int, message string, data any) *Message {
	return &Message{
		JSONRPC: "2.0",
		ID:      id,
		Error: &ResponseError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

func notification(method string, params any) (*Message, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	return &Message{JSONRPC: "2.0", Method: method, Params: raw}, nil
}

// uriToPath converts a file URI to a file path. Anything else is returned
// unchanged.
func uriToPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return uri
	}
	return filepath.FromSlash(u.Path)
}
