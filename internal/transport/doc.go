// Package transport is the single HTTP entry point to the inference service.
//
// A Client is configured with the service base URL and talks to the versioned
// API prefix beneath it (<base>/v1). Every body goes through the jsonbig codec
// so large identifiers survive the round trip. A 200 response must carry the
// {"data": ...} envelope and only the payload reaches the caller. Every other
// outcome becomes an *Error whose Kind is fixed by the status code:
//
//	400 -> KindValidation (server payload kept in Detail)
//	403 -> KindForbidden  (forbidden handler runs first)
//	404 -> KindNotFound
//	500 -> KindServer     (server error handler runs first)
//	anything else, or no response -> KindUnknown
//
// The client never retries. Retry policy belongs to callers.
package transport
