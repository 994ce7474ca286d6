// Package tools exposes studio operations as callable tools.
//
// It is organized into sub-packages:
//   - [github.com/germanamz/studio/pkg/tools/toolbox] - Tool type and ToolBox for registering and calling tools
//   - [github.com/germanamz/studio/pkg/tools/mcpserver] - MCP server using the official MCP Go SDK for exposing tools over the MCP protocol
package tools
