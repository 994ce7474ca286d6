// Package studio is the composition root that assembles the studio from
// configuration and exposes it through a frontend-agnostic API. Frontends
// (terminal UI, web server, MCP server) interact with a Studio, observe
// state changes through the store's subscriptions, and never drive the
// streaming client directly.
package studio
