package mcp

import (
	"context"
	"fmt"
	"os"

	mcpsdk "github.com/mark3labs/mcp-go/mcp"

	"github.com/mamaar/shortfunc/pkg/discover"
	"github.com/mamaar/shortfunc/pkg/refactor"
)

// LongFunction is one entry of find_long_functions.
type LongFunction struct {
	Path string `json:"path"`
	refactor.FunctionReport
}

// FileResult is returned by refactor_file.
type FileResult struct {
	*refactor.FileResult
	Diff string `json:"diff,omitempty"`
}

// TreeResult is returned by refactor_tree.
type TreeResult struct {
	*refactor.Report
	Diffs map[string]string `json:"diffs,omitempty"`
}

func (s *Server) handleFindLongFunctions(ctx context.Context, req mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	args := req.GetArguments()
	all := boolArg(args, "all")

	root, err := s.resolve(stringArg(args, "path"))
	if err != nil {
		return errResult(err), nil
	}
	files, err := discover.Files([]string{root}, s.cfg.DiscoverOptions())
	if err != nil {
		return errResult(err), nil
	}

	found := []LongFunction{}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return errResult(err), nil
		}
		reports, err := s.driver.Inspect(path, content)
		if err != nil {
			s.logger.Warn("cannot inspect file", "file", path, "error", err)
			continue
		}
		for _, rep := range reports {
			if all || rep.Overlong {
				found = append(found, LongFunction{Path: path, FunctionReport: rep})
			}
		}
	}
	return textResult(found), nil
}

func (s *Server) handleListCandidates(_ context.Context, req mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	args := req.GetArguments()
	file := stringArg(args, "file")
	name := stringArg(args, "function")
	if file == "" || name == "" {
		return mcpsdk.NewToolResultError("file and function are required"), nil
	}

	path, err := s.resolve(file)
	if err != nil {
		return errResult(err), nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return errResult(err), nil
	}
	suggestions, err := s.driver.Candidates(path, content, name)
	if err != nil {
		return errResult(err), nil
	}
	if limit := intArg(args, "limit"); limit > 0 && len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return textResult(suggestions), nil
}

func (s *Server) handleRefactorFile(ctx context.Context, req mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	args := req.GetArguments()
	file := stringArg(args, "file")
	if file == "" {
		return mcpsdk.NewToolResultError("file is required"), nil
	}
	dryRun := boolArg(args, "dry_run")
	path, err := s.resolve(file)
	if err != nil {
		return errResult(err), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.driver.RefactorFile(ctx, path, !dryRun)
	if err != nil {
		return errResult(fmt.Errorf("refactor %s: %w", file, err)), nil
	}
	out := FileResult{FileResult: res}
	if dryRun {
		out.Diff = refactor.UnifiedDiff(res.Path, res.Before, res.After)
	}
	return textResult(out), nil
}

func (s *Server) handleRefactorTree(ctx context.Context, req mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	args := req.GetArguments()
	dryRun := boolArg(args, "dry_run")

	root, err := s.resolve(stringArg(args, "path"))
	if err != nil {
		return errResult(err), nil
	}
	files, err := discover.Files([]string{root}, s.cfg.DiscoverOptions())
	if err != nil {
		return errResult(err), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	engine := refactor.NewEngine(s.driver, s.cfg.EngineConfig(dryRun), nil, s.logger)
	report, err := engine.Run(ctx, files)
	if err != nil {
		return nil, err
	}
	out := TreeResult{Report: report}
	if dryRun {
		out.Diffs = make(map[string]string)
		for _, res := range report.Changed() {
			out.Diffs[res.Path] = refactor.UnifiedDiff(res.Path, res.Before, res.After)
		}
	}
	return textResult(out), nil
}
