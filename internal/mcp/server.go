// Package mcp exposes shortfunc as Model Context Protocol tools.
package mcp

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mamaar/shortfunc/pkg/analysis"
	"github.com/mamaar/shortfunc/pkg/config"
	"github.com/mamaar/shortfunc/pkg/refactor"
	"github.com/mamaar/shortfunc/pkg/types"
)

// Server holds the state shared by the tool handlers: the workspace root
// relative paths are resolved against, the configuration and a driver
// built from it.
type Server struct {
	root   string
	cfg    *config.Config
	driver *refactor.Driver
	logger *slog.Logger

	// serializes tools that write files
	mu sync.Mutex
}

func NewServer(root string, cfg *config.Config, logger *slog.Logger) *Server {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &Server{
		root:   root,
		cfg:    cfg,
		driver: refactor.NewDriver(analysis.NewParser(logger), cfg.RefactorOptions(), nil, logger),
		logger: logger,
	}
}

// MCPServer builds a protocol server with every tool registered.
func (s *Server) MCPServer(name, version string) *server.MCPServer {
	ms := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	RegisterAllTools(ms, s)
	return ms
}

// resolve turns a tool argument into a path inside the workspace. Paths
// that leave the workspace are refused.
func (s *Server) resolve(path string) (string, error) {
	full := s.root
	switch {
	case path == "":
	case filepath.IsAbs(path):
		full = filepath.Clean(path)
	default:
		full = filepath.Join(s.root, path)
	}
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", types.Errorf(types.InvalidOperation, "%s is outside the workspace %s", path, s.root)
	}
	return full, nil
}
