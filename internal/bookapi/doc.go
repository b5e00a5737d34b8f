// Package bookapi provides an HTTP client for the book catalog API.
//
// # Overview
//
// The catalog API is an external service; bookdesk consumes it and never
// implements it (see internal/mockapi for the local fake). This package owns
// the base URL, the default headers and the wire types, so call sites never
// repeat that configuration.
//
//   - client.go: Client, the API interface and request plumbing
//   - types.go: wire types and the multipart field names
//   - errors.go: failure classification
//
// # Endpoints
//
//	POST /api/users/login     {email, password}        -> {accessToken}
//	POST /api/users/register  {name, email, password}  -> {accessToken}
//	GET  /api/books                                    -> [Book]
//	POST /api/books           multipart + Bearer token -> Book
//
// # Request Handling
//
// Every request:
//   - carries the caller's context
//   - sets Content-Type (application/json unless multipart), Accept,
//     User-Agent and a fresh X-Request-ID
//   - is bounded by the http.Client timeout (15s default, WithTimeout)
//
// CreateBook streams the multipart body through an io.Pipe, so cover images
// and documents are read from disk while the request is being sent.
//
// # Error Handling
//
// Every operation returns either a value or an *Error whose Kind is one of:
//
//   - KindUnreachable: no response (connection refused, DNS, reset)
//   - KindTimeout: the transport deadline passed
//   - KindAuth: missing token, or a 401/403 response
//   - KindClient: other 4xx responses, body message kept in Message/Fields
//   - KindServer: 5xx responses
//   - KindDecode: a 2xx response that could not be decoded
//
// The client never retries. Retry policy, if any, belongs to the caller.
package bookapi
