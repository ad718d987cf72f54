// Package session holds the signed-in user's state: identity, tokens, shelves and per-book mutation feedback.
//
// # Manager
//
// [Manager] is the single writer of session state. Every change goes through one of its actions, and readers take a
// copy with [Manager.Snapshot]. Interested parties call [Manager.Subscribe] and re-read the snapshot whenever an
// [Event] arrives.
//
// Library fetches supersede each other: starting a fetch cancels the one in flight and its response is dropped, so the
// shelf list always reflects the most recent request. Responses that arrive after a logout are dropped the same way.
//
// Any 401 from the gateway signs the user out.
//
// # Mutations
//
// Adds and removes move a book through idle, loading, success or error, and back to idle after the reset delay.
// Each action carries a token so a timer left over from an earlier action never resets a newer one.
//
// # Shelf and search views
//
// [ShelfView] follows one shelf's volumes and re-syncs when the library changes. [Search] runs public catalog queries.
package session
