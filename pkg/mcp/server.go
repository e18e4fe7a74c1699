package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rmax-ai/borrowd/pkg/client"
)

const promptName = "borrow-helper"

// Server adapts borrowd to the Model Context Protocol.
type Server struct {
	mcpServer *server.MCPServer
	apiClient *client.Client
}

// NewServer creates a new MCP server instance talking to the daemon at apiURL.
func NewServer(apiURL, version string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"borrowd",
			version,
		),
		apiClient: client.NewClient(apiURL),
	}
	s.registerResources()
	s.registerTools()
	s.registerPrompts()
	return s
}

// Serve starts the MCP server on stdio.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcpServer)
}

// --- Resources ---

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(
		"borrow://people",
		"People",
		mcp.WithResourceDescription("Everyone in the social graph with their friends and possessions"),
		mcp.WithMIMEType("application/json"),
	), s.handleReadPeople)

	s.mcpServer.AddResource(mcp.NewResource(
		"borrow://events",
		"Graph Mutation Log",
		mcp.WithResourceDescription("Recently recorded registrations, friendships and possessions"),
		mcp.WithMIMEType("application/json"),
	), s.handleReadEvents)
}

// --- Tools ---

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"list_friends",
		mcp.WithDescription("List the direct friends of a person."),
		mcp.WithString("name", mcp.Required(), mcp.Description("The person whose friends to list")),
	), s.handleListFriends)

	s.mcpServer.AddTool(mcp.NewTool(
		"check_acquaintance",
		mcp.WithDescription("Check whether two people are direct friends."),
		mcp.WithString("person1", mcp.Required(), mcp.Description("First person")),
		mcp.WithString("person2", mcp.Required(), mcp.Description("Second person")),
	), s.handleCheckAcquaintance)

	s.mcpServer.AddTool(mcp.NewTool(
		"find_borrow_path",
		mcp.WithDescription("Find the shortest chain of friends from a person to someone who owns an item."),
		mcp.WithString("name", mcp.Required(), mcp.Description("The person who wants to borrow")),
		mcp.WithString("item", mcp.Required(), mcp.Description("The item to borrow (e.g., 'kamera')")),
	), s.handleFindBorrowPath)

	s.mcpServer.AddTool(mcp.NewTool(
		"add_friendship",
		mcp.WithDescription("Record that two registered people are friends."),
		mcp.WithString("person1", mcp.Required(), mcp.Description("First person")),
		mcp.WithString("person2", mcp.Required(), mcp.Description("Second person")),
	), s.handleAddFriendship)
}

// --- Prompts ---

func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(mcp.NewPrompt(
		promptName,
		mcp.WithPromptDescription("Explains how to find who can lend an item through friends"),
	), s.handleGetPrompt)
}

// --- Handlers ---

func (s *Server) handleReadPeople(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	people, err := s.apiClient.People(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch people: %w", err)
	}
	return jsonResource(request.Params.URI, people)
}

func (s *Server) handleReadEvents(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	events, err := s.apiClient.Events(ctx, client.EventsOptions{Limit: 50})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}
	return jsonResource(request.Params.URI, events)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleListFriends(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := mcp.ParseString(request, "name", "")
	if name == "" {
		return mcp.NewToolResultError("name is required"), nil
	}

	friends, err := s.apiClient.Friends(ctx, name)
	if err != nil {
		if errors.Is(err, client.ErrPersonNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("%s is not in the graph", name)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}
	if len(friends) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("%s has no friends yet.", name)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Friends of %s: %s", name, strings.Join(friends, ", "))), nil
}

func (s *Server) handleCheckAcquaintance(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p1 := mcp.ParseString(request, "person1", "")
	p2 := mcp.ParseString(request, "person2", "")

	knows, err := s.apiClient.Knows(ctx, p1, p2)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}
	if knows {
		return mcp.NewToolResultText(fmt.Sprintf("Yes, %s and %s are friends.", p1, p2)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("No, %s and %s are not friends.", p1, p2)), nil
}

func (s *Server) handleFindBorrowPath(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := mcp.ParseString(request, "name", "")
	item := mcp.ParseString(request, "item", "")
	if name == "" || item == "" {
		return mcp.NewToolResultError("name and item are required"), nil
	}

	path, err := s.apiClient.BorrowPath(ctx, name, item)
	switch {
	case errors.Is(err, client.ErrNoPath):
		return mcp.NewToolResultText(fmt.Sprintf("Nobody reachable from %s owns %s.", name, item)), nil
	case errors.Is(err, client.ErrSearchLimit):
		return mcp.NewToolResultError("The graph is too large to search right now."), nil
	case err != nil:
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}

	if path.Hops == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("%s already owns %s.", name, item)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Path (%d hops): %s\n%s can lend the %s.",
		path.Hops, strings.Join(path.Path, " -> "), path.Path[len(path.Path)-1], item)), nil
}

func (s *Server) handleAddFriendship(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p1 := mcp.ParseString(request, "person1", "")
	p2 := mcp.ParseString(request, "person2", "")
	if p1 == "" || p2 == "" {
		return mcp.NewToolResultError("person1 and person2 are required"), nil
	}

	eventID, err := s.apiClient.AddFriendship(ctx, p1, p2)
	if err != nil {
		var unknown *client.UnknownPersonError
		if errors.As(err, &unknown) {
			return mcp.NewToolResultError(fmt.Sprintf("Not registered: %s", strings.Join(unknown.Names, ", "))), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s and %s are now friends (event %s).", p1, p2, eventID)), nil
}

func (s *Server) handleGetPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := request.Params.Name
	if name != promptName {
		return nil, fmt.Errorf("prompt not found: %s", name)
	}

	promptText := `You can see a social graph of people, who is friends with whom, and what each person owns.

Concepts:
- Friendship is mutual: if A is a friend of B, B is a friend of A.
- A borrow path starts at the person asking and ends at someone who owns the item.
  Each step is a direct friendship, and the path is as short as possible.

When the user wants to borrow something, use the 'find_borrow_path' tool and explain
who to ask at each step. Use 'list_friends' and 'check_acquaintance' for questions
about direct friends. Only call 'add_friendship' when the user explicitly asks to record one.
`

	return mcp.NewGetPromptResult(
		promptName,
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(promptText)),
		},
	), nil
}
