// Package chats provides the provider-agnostic data model for studio conversations.
//
// It is organized into sub-packages:
//   - [github.com/germanamz/studio/pkg/chats/role] - conversation roles (system, user, assistant)
//   - [github.com/germanamz/studio/pkg/chats/message] - messages with an ID, role, text content and the answering model
//   - [github.com/germanamz/studio/pkg/chats/chat] - append-only conversation container
//
// No aggregator or API code is included; chats is a foundation layer that
// the store, the streaming client and the frontends build on.
package chats
