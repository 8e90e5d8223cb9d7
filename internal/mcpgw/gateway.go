// Package mcpgw implements the MCP (Model Context Protocol) gateway.
//
// It dispatches JSON-RPC 2.0 requests over HTTP onto the two Salesforce
// tools this server exposes:
//   - list_accounts
//   - create_quote_from_opportunity
//
// Tool results are returned as MCP text content carrying pretty-printed
// JSON, matching what existing clients parse.
package mcpgw

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/forcebridge/forcebridge/internal/salesforce"
	"github.com/forcebridge/forcebridge/internal/tools"
	"github.com/forcebridge/forcebridge/pkg/models"
)

const protocolVersion = "2024-11-05"

var tracer = otel.Tracer("forcebridge-mcpgw")

// handler produces a tool's result payload. Operational failures are
// folded into the payload itself; a handler never fails outward, so
// tools/call always answers on the JSON-RPC result channel.
type handler func(ctx context.Context, args map[string]interface{}) interface{}

type tool struct {
	info models.MCPToolInfo
	call handler
}

// Gateway dispatches MCP requests to the registered tools.
type Gateway struct {
	version string
	tools   []tool
}

// NewGateway registers the Salesforce tools against the given service.
func NewGateway(svc *tools.Service, version string) *Gateway {
	gw := &Gateway{version: version}

	gw.register(models.MCPToolInfo{
		Name:        "list_accounts",
		Description: "Fetch Salesforce Accounts. Returns list of account names and IDs.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of accounts to return (default: 5, max: 100)",
					"default":     5,
				},
			},
		},
	}, func(ctx context.Context, args map[string]interface{}) interface{} {
		limit := 5
		if v, ok := args["limit"].(float64); ok {
			limit = int(v)
		}
		records, err := svc.ListAccounts(ctx, limit)
		if err != nil {
			// Errors ride the success channel as a one-element list;
			// clients inspect the "error" key, not the RPC status.
			return []map[string]string{{"error": err.Error()}}
		}
		if records == nil {
			return []salesforce.Record{}
		}
		return records
	})

	gw.register(models.MCPToolInfo{
		Name:        "create_quote_from_opportunity",
		Description: "Create a Standard Quote and Quote Line Items from an Opportunity.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"opportunity_id": map[string]interface{}{
					"type":        "string",
					"description": "The Salesforce Opportunity ID (required)",
				},
			},
			"required": []string{"opportunity_id"},
		},
	}, func(ctx context.Context, args map[string]interface{}) interface{} {
		opportunityID, _ := args["opportunity_id"].(string)
		return svc.CreateQuoteFromOpportunity(ctx, opportunityID)
	})

	return gw
}

func (gw *Gateway) register(info models.MCPToolInfo, call handler) {
	gw.tools = append(gw.tools, tool{info: info, call: call})
}

// HandleJSONRPC processes one MCP request. A nil return means the request
// was a notification and gets no response body.
func (gw *Gateway) HandleJSONRPC(ctx context.Context, req *models.MCPRequest) *models.MCPResponse {
	switch req.Method {

	// ── Discovery ────────────────────────────────────
	case "initialize":
		return gw.handleInitialize(req)

	case "tools/list":
		return gw.handleToolsList(req)

	// ── Tool Invocation ──────────────────────────────
	case "tools/call":
		return gw.handleToolsCall(ctx, req)

	// ── Notifications (no response) ──────────────────
	case "notifications/initialized":
		log.Debug().Msg("MCP client initialized")
		return nil

	case "ping":
		return &models.MCPResponse{
			Jsonrpc: "2.0",
			Result:  map[string]string{"status": "pong"},
			ID:      req.ID,
		}

	default:
		return &models.MCPResponse{
			Jsonrpc: "2.0",
			Error: &models.MCPError{
				Code:    -32601,
				Message: "Method not found",
				Data:    fmt.Sprintf("Method '%s' is not supported", req.Method),
			},
			ID: req.ID,
		}
	}
}

func (gw *Gateway) handleInitialize(req *models.MCPRequest) *models.MCPResponse {
	return &models.MCPResponse{
		Jsonrpc: "2.0",
		Result: map[string]interface{}{
			"protocolVersion": protocolVersion,
			"capabilities": map[string]interface{}{
				"tools": map[string]bool{},
			},
			"serverInfo": map[string]string{
				"name":    "forcebridge",
				"version": gw.version,
			},
		},
		ID: req.ID,
	}
}

func (gw *Gateway) handleToolsList(req *models.MCPRequest) *models.MCPResponse {
	infos := make([]models.MCPToolInfo, 0, len(gw.tools))
	for _, t := range gw.tools {
		infos = append(infos, t.info)
	}
	return &models.MCPResponse{
		Jsonrpc: "2.0",
		Result: map[string]interface{}{
			"tools": infos,
		},
		ID: req.ID,
	}
}

func (gw *Gateway) handleToolsCall(ctx context.Context, req *models.MCPRequest) *models.MCPResponse {
	var params models.MCPToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return &models.MCPResponse{
			Jsonrpc: "2.0",
			Error: &models.MCPError{
				Code:    -32602,
				Message: "Invalid params",
				Data:    err.Error(),
			},
			ID: req.ID,
		}
	}

	for _, t := range gw.tools {
		if t.info.Name != params.Name {
			continue
		}

		callID := uuid.New().String()
		ctx, span := tracer.Start(ctx, "tools/call")
		span.SetAttributes(
			attribute.String("mcp.tool", params.Name),
			attribute.String("mcp.call_id", callID),
		)
		defer span.End()

		log.Info().Str("tool", params.Name).Str("call_id", callID).Msg("tool call")
		payload := t.call(ctx, params.Arguments)

		text, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return &models.MCPResponse{
				Jsonrpc: "2.0",
				Error: &models.MCPError{
					Code:    -32603,
					Message: "Internal error",
					Data:    err.Error(),
				},
				ID: req.ID,
			}
		}

		return &models.MCPResponse{
			Jsonrpc: "2.0",
			Result: models.MCPToolResult{
				Content: []models.MCPContent{{
					Type: "text",
					Text: string(text),
				}},
			},
			ID: req.ID,
		}
	}

	return &models.MCPResponse{
		Jsonrpc: "2.0",
		Error: &models.MCPError{
			Code:    -32001,
			Message: "Tool not found",
			Data:    fmt.Sprintf("Tool '%s' is not registered", params.Name),
		},
		ID: req.ID,
	}
}
