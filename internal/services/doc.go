// Package services defines the [Gateway] interface for the book API gateway and implements it over HTTP.
//
// # Gateway
//
// The gateway fronts the public catalog and the signed-in user's library. Paths are fixed:
//   - POST /api/auth/google/exchange : authorization code for tokens and identity claims
//   - GET  /api/books/search : public search, no credentials
//   - GET  /api/my-library/bookshelves : shelves, {items} envelope
//   - GET  /api/my-library/bookshelves/{id}/volumes : volumes on a shelf
//   - POST /api/my-library/bookshelves/{id}/add|remove : body {volumeId}
//
// Library calls carry [Credentials]: the identity token as a bearer token and the access token in [HeaderAccessToken].
// A call made without both tokens fails with [shared.ErrNotAuthenticated] before anything is sent.
//
// # Error Handling
//
// Non-2xx responses become [*APIError]. The message is taken from the body (error.message, message, error) or falls
// back to an endpoint specific string. A 401 matches [shared.ErrUnauthorized]; every APIError matches
// [shared.ErrAPIRequest]. Transport and decode failures wrap [shared.ErrAPIRequest].
//
// [Message] turns any of these into display text.
package services
