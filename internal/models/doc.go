// Package models defines the data exchanged with the API gateway and the transient client state built from it.
//
// The package contains two categories of types:
//
// 1. Wire types: JSON shapes returned by the gateway, passed through largely as-is
//   - [Shelf] : a user-owned bookshelf with its volume count
//   - [Volume] : a book on a shelf, as the upstream catalog represents it
//   - [BookSummary] : a flattened public search result
//   - [TokenResponse] : the result of exchanging an authorization code
//
// 2. Session types: in-memory state that never leaves the process
//   - [Identity] : decoded identity-token claims for the signed-in user
//   - [MutationState] : per-book feedback for an add/remove action
//
// Request types ([SearchRequest], [ShelfMutation]) carry validate tags checked by the validation package.
package models
