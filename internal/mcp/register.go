package mcp

import (
	mcpsdk "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterAllTools wires every shortfunc tool into the MCP server.
func RegisterAllTools(s *server.MCPServer, state *Server) {
	s.AddTool(mcpsdk.NewTool("find_long_functions",
		mcpsdk.WithDescription("List the functions longer than the configured threshold in a file or directory tree, with the number of legal extractions and the best one."),
		mcpsdk.WithString("path",
			mcpsdk.Description("File or directory, absolute or relative to the workspace root (default: the root)"),
		),
		mcpsdk.WithBoolean("all",
			mcpsdk.Description("List every function, not only overlong ones"),
			mcpsdk.DefaultBool(false),
		),
	), state.handleFindLongFunctions)

	s.AddTool(mcpsdk.NewTool("list_candidates",
		mcpsdk.WithDescription("Rank every legal Extract Method candidate of one function, best first."),
		mcpsdk.WithString("file",
			mcpsdk.Required(),
			mcpsdk.Description("Source file, absolute or relative to the workspace root"),
		),
		mcpsdk.WithString("function",
			mcpsdk.Required(),
			mcpsdk.Description("Function name, or Type.Method for methods"),
		),
		mcpsdk.WithNumber("limit",
			mcpsdk.Description("Return at most this many candidates (0: all)"),
		),
	), state.handleListCandidates)

	s.AddTool(mcpsdk.NewTool("refactor_file",
		mcpsdk.WithDescription("Repeatedly extract helpers out of the overlong functions of one file until none qualifies."),
		mcpsdk.WithString("file",
			mcpsdk.Required(),
			mcpsdk.Description("Source file, absolute or relative to the workspace root"),
		),
		mcpsdk.WithBoolean("dry_run",
			mcpsdk.Description("Return a unified diff instead of writing the file"),
			mcpsdk.DefaultBool(false),
		),
	), state.handleRefactorFile)

	s.AddTool(mcpsdk.NewTool("refactor_tree",
		mcpsdk.WithDescription("Refactor every Go file below a directory. Files that fail are reported and skipped."),
		mcpsdk.WithString("path",
			mcpsdk.Description("Directory, absolute or relative to the workspace root (default: the root)"),
		),
		mcpsdk.WithBoolean("dry_run",
			mcpsdk.Description("Return unified diffs instead of writing files"),
			mcpsdk.DefaultBool(false),
		),
	), state.handleRefactorTree)
}
