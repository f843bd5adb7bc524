// Package ioutils provides file system helpers shared by the download
// engines and the executor.
//
// # Directories
//
//	// Idempotent; safe to call before every job
//	err := ioutils.EnsureDir("/home/me/Downloads/MultiDL/.temp")
//
// # Filenames and Templates
//
// User supplied titles end up in output filenames, so they are sanitized
// and then escaped before being embedded in a yt-dlp output template:
//
//	name := ioutils.SanitizeFileName("Live: 100% Acoustic") // "Live_ 100% Acoustic"
//	tmpl := ioutils.EscapeTemplate(name) + ".%(ext)s"       // "Live_ 100%% Acoustic.%(ext)s"
//
// # Moving Files
//
// MoveFile renames a file and falls back to copy + remove when the source and
// destination live on different devices (a common setup for work directories
// on tmpfs):
//
//	err := ioutils.MoveFile(ctx, "/tmp/work/clip.mp4.part", "/data/clip.mp4")
package ioutils
