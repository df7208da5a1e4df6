// Package mcp exposes the engine over the Model Context Protocol so external
// agents can drive sessions as tools: start_session, process_action and
// get_state over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"storyengine/internal/debug"
	"storyengine/internal/game/session"
)

type Server struct {
	registry *session.Registry
	opts     session.Options
	log      *debug.Logger
	server   *mcp.Server
}

func NewServer(registry *session.Registry, opts session.Options, log *debug.Logger) *Server {
	s := &Server{
		registry: registry,
		opts:     opts,
		log:      log,
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "storyengine",
		Version: "v1.0.0",
	}, nil)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "start_session",
		Description: "Start a new game session and return its id with the opening narrative and choices.",
	}, s.startSession)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "process_action",
		Description: "Process one player action for a session and return the resolved turn.",
	}, s.processAction)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_state",
		Description: "Return the full state snapshot of a session.",
	}, s.getState)

	return s
}

// Run serves MCP over stdio until the context ends.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, mcp.NewStdioTransport())
}

type startSessionInput struct{}

type processActionInput struct {
	SessionID string `json:"session_id" jsonschema:"the session to act in"`
	Type      string `json:"type" jsonschema:"action type: choice, move, use, give, take, drop, buy, sell, wait or do"`
	Text      string `json:"text,omitempty" jsonschema:"free text for do actions"`
	Target    string `json:"target,omitempty" jsonschema:"location or character target"`
	ItemID    string `json:"item_id,omitempty" jsonschema:"item id for item actions"`
	ChoiceID  string `json:"choice_id,omitempty" jsonschema:"choice id for choice actions"`
}

type getStateInput struct {
	SessionID string `json:"session_id" jsonschema:"the session to inspect"`
}

func (s *Server) startSession(ctx context.Context, ss *mcp.ServerSession, params *mcp.CallToolParamsFor[startSessionInput]) (*mcp.CallToolResultFor[any], error) {
	rt, result, err := s.registry.Create(s.opts)
	if err != nil {
		return errorResult(fmt.Errorf("failed to start session: %w", err)), nil
	}
	s.log.Printf("mcp: started session %s", rt.ID())
	return jsonResult(result)
}

func (s *Server) processAction(ctx context.Context, ss *mcp.ServerSession, params *mcp.CallToolParamsFor[processActionInput]) (*mcp.CallToolResultFor[any], error) {
	rt, err := s.registry.Get(params.Arguments.SessionID)
	if err != nil {
		return errorResult(err), nil
	}

	action := session.Action{
		Type:     params.Arguments.Type,
		Text:     params.Arguments.Text,
		Target:   params.Arguments.Target,
		ItemID:   params.Arguments.ItemID,
		ChoiceID: params.Arguments.ChoiceID,
	}
	result, err := rt.ProcessAction(ctx, action)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(result)
}

func (s *Server) getState(ctx context.Context, ss *mcp.ServerSession, params *mcp.CallToolParamsFor[getStateInput]) (*mcp.CallToolResultFor[any], error) {
	rt, err := s.registry.Get(params.Arguments.SessionID)
	if err != nil {
		return errorResult(err), nil
	}
	snapshot, err := rt.State().Snapshot()
	if err != nil {
		return errorResult(fmt.Errorf("failed to snapshot session: %w", err)), nil
	}
	return jsonResult(snapshot)
}

func jsonResult(v any) (*mcp.CallToolResultFor[any], error) {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResult(fmt.Errorf("failed to encode result: %w", err)), nil
	}
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil
}

func errorResult(err error) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}
}
