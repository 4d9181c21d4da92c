// Package fetch imports remote videos into local files with yt-dlp so they
// can be uploaded for analysis.
package fetch
