package mcp

import (
	"encoding/json"
	"fmt"

	mcpsdk "github.com/mark3labs/mcp-go/mcp"
)

// textResult marshals v to indented JSON in a single text block.
func textResult(v any) *mcpsdk.CallToolResult {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcpsdk.NewToolResultError(fmt.Sprintf("encode result: %v", err))
	}
	return mcpsdk.NewToolResultText(string(b))
}

func errResult(err error) *mcpsdk.CallToolResult {
	return mcpsdk.NewToolResultError(err.Error())
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

func boolArg(args map[string]any, name string) bool {
	b, _ := args[name].(bool)
	return b
}

func intArg(args map[string]any, name string) int {
	switch n := args[name].(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return 0
}
