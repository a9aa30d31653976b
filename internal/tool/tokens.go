// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gemaraproj/credsniff/internal/token"
)

// MetadataFindTokens describes the find_tokens tool.
var MetadataFindTokens = &mcp.Tool{
	Name: "find_tokens",
	Description: "Find access key id tokens in text. A token is a known 4-character family prefix " +
		"followed by 16 or 17 upper-case letters or digits, not embedded in a longer alphanumeric run.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"text"},
		"properties": map[string]interface{}{
			"text": map[string]interface{}{
				"type":        "string",
				"description": "Text to search",
			},
		},
	},
}

// InputFindTokens is the input for the FindTokens tool.
type InputFindTokens struct {
	Text string `json:"text"`
}

// OutputFindTokens is the output for the FindTokens tool.
type OutputFindTokens struct {
	Matches []token.MatchSpan `json:"matches"`
}

// FindTokensHandler returns the MCP handler of find_tokens bound to n's matchers.
func FindTokensHandler(n *Normalizer) func(context.Context, *mcp.CallToolRequest, InputFindTokens) (*mcp.CallToolResult, OutputFindTokens, error) {
	return func(_ context.Context, _ *mcp.CallToolRequest, input InputFindTokens) (*mcp.CallToolResult, OutputFindTokens, error) {
		if input.Text == "" {
			return nil, OutputFindTokens{}, fmt.Errorf("text is required")
		}
		out := OutputFindTokens{Matches: []token.MatchSpan{}}
		for _, m := range n.matchers {
			out.Matches = append(out.Matches, m.FindAll(input.Text)...)
		}
		return nil, out, nil
	}
}

// Register adds all tools to server.
func Register(server *mcp.Server, n *Normalizer) {
	mcp.AddTool(server, MetadataNormalizeContent, NormalizeContentHandler(n))
	mcp.AddTool(server, MetadataFindTokens, FindTokensHandler(n))
}
