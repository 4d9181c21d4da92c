// Package devserver is a development stand-in for the analysis server.
// It speaks the same HTTP and event-stream contract but replays a scripted
// session with synthetic frames instead of analysing the uploaded video.
package devserver
