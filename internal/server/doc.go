// Package server provides the loopback HTTP listener used to receive OAuth authorization callbacks.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Callback Handler
//
// [CallbackHandler] receives the identity provider's redirect. Each login arms it with a fresh state value through
// [CallbackHandler.Expect], and the first callback for that login settles it: the state is checked, and the code (or the
// provider's error) is delivered on the returned channel. The code is not exchanged here; the gateway does that.
//
// Later hits for the same login are rejected, so a replayed redirect cannot complete a second sign-in.
//
// # Serving
//
// [Serve] runs a router on an already bound listener until its context ends.
package server
