// Package middleware provides HTTP middleware for the media inspector server.
//
// It includes:
//   - Request logging in W3C Extended Log Format, with the analysis run id
//     appended for progress streams
//   - Prometheus request metrics labelled by route template
//   - gzip compression (gzhttp) that leaves event streams and WebSocket
//     upgrades alone
package middleware
