// Package compress shrinks local videos with ffmpeg so they fit the
// analysis server's upload limit.
package compress
