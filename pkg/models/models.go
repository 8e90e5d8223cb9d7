// Package models defines the wire-level types shared between the MCP
// gateway, the Salesforce tool implementations, and external callers.
package models

import "encoding/json"

// ─── MCP / JSON-RPC 2.0 ─────────────────────────────────────

type MCPRequest struct {
	Jsonrpc string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      interface{}     `json:"id"`
}

type MCPResponse struct {
	Jsonrpc string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type MCPToolInfo struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	InputSchema map[string]interface{} `json:"inputSchema,omitempty"`
}

type MCPToolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

type MCPToolResult struct {
	Content []MCPContent `json:"content"`
	IsError bool         `json:"isError,omitempty"`
}

type MCPContent struct {
	Type string `json:"type"` // text, image, resource
	Text string `json:"text,omitempty"`
}

// ─── Tool payloads ──────────────────────────────────────────

// QuoteLine is the denormalized view of a created quote line item.
//
// Numeric fields are pointers on purpose: a zero or missing value in the
// source line is reported as null, not 0. Existing clients depend on this
// "falsy means missing" coercion, so it is part of the wire contract even
// though it conflates "zero" with "unknown".
type QuoteLine struct {
	SKUID      *string  `json:"skuId"`
	ListPrice  *float64 `json:"listPrice"`
	SalesPrice *float64 `json:"salesPrice"`
	Quantity   *float64 `json:"quantity"`
}

// WorkflowResult is the flat response of create_quote_from_opportunity.
//
// Exactly one of {QuoteID populated, ErrorMessage populated} describes the
// terminal state. Fields are filled in as the workflow progresses and a
// failure keeps everything populated so far — partial success is visible
// to the caller, never rolled back. No field uses omitempty: clients see
// explicit nulls for anything a failed stage did not reach.
type WorkflowResult struct {
	QuoteID         *string     `json:"quoteId"`
	OpportunityID   *string     `json:"opportunityId"`
	OpportunityName *string     `json:"opportunityName"`
	AccountID       *string     `json:"accountId"`
	AccountName     *string     `json:"accountName"`
	AccountPhone    *string     `json:"accountPhone"`
	AccountIndustry *string     `json:"accountIndustry"`
	QuoteLineCount  int         `json:"quoteLineCount"`
	QuoteLines      []QuoteLine `json:"quoteLines"`
	ErrorMessage    *string     `json:"errorMessage"`
}

// NewWorkflowResult returns a result with every field at its zero wire
// value (nulls, 0, empty list).
func NewWorkflowResult() *WorkflowResult {
	return &WorkflowResult{QuoteLines: []QuoteLine{}}
}

// SetError records a terminal failure, keeping fields already populated.
func (r *WorkflowResult) SetError(msg string) {
	r.ErrorMessage = &msg
}
