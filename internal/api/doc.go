package api

// Package api is the HTTP client of the analysis server. One-shot requests
// (upload, stop, counts, export) go through resty; the /process push
// channel is read as a server-sent event stream by a cancellable
// Subscription that delivers messages strictly in arrival order.
