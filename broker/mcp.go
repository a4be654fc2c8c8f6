package broker

import (
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/profilewatch/kit"
	"github.com/hazyhaar/profilewatch/protocol"
)

// RegisterMCP registers the scrape_profile tool on srv.
func (b *Broker) RegisterMCP(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "scrape_profile",
		Description: "Scrape a public profile page (header, experience, education, skills) and return it as JSON with the scrape's debug log.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{"type": "string", "description": "Profile URL, https://<host>/in/<slug>/"},
			},
			"required": []string{"url"},
		},
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r protocol.ScrapeRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		r.Action = protocol.ActionScrapeProfile
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	ep := kit.Chain(kit.Logging(b.logger, "scrape_profile"))(b.ScrapeEndpoint())
	kit.RegisterMCPTool(srv, tool, ep, decode)
}
