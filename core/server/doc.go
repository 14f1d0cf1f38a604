// Package server holds the HTTP server configuration.
//
// The start command serves the sync trigger API using these settings: the
// listen port, the API key protecting every route and the request read timeout.
//
// # Usage
//
// This package is primarily used by the core/config package to embed server settings
// and by cmd/start to configure the Fiber application.
package server
