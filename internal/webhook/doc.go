// Package webhook receives forge webhook callbacks and relays them as
// chat notifications.
//
// # Request flow
//
//  1. HTTP POST arrives at /webhook with event-kind and signature headers
//  2. Body size checked (413 if too large)
//  3. Payload decoded, repository URL extracted
//  4. Registration looked up (exact, then normalized-path match)
//  5. HMAC-SHA256 signature verified with constant-time comparison
//  6. Event parsed and formatted
//  7. Notification dispatched, trying address forms in order
//
// # Response codes
//
//   - 200: delivered, or deliberately ignored (unmonitored repository,
//     unsupported event); 200 for ignored traffic keeps the forge from
//     retrying events this service will never act on
//   - 400: missing header, malformed payload, missing repository URL, or
//     delivery failure
//   - 401: invalid signature
//   - 413: payload too large
//   - 429: rate limited
//   - 500: unexpected internal fault (recovered, never crashes the server)
package webhook
