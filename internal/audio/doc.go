// Package audio provides post-download services for audio files: ID3 tag
// writing and playlist generation.
//
// # ID3 Tagging
//
// The Tagger writes the submitted title and the source URL into every MP3
// a job produced. It plugs into the download manager as a post-processor:
//
//	tagger := audio.NewTagger(audio.DefaultTagConfig())
//	mgr, err := download.NewManager(settings, eng, download.WithPostProcessor(tagger))
//
// # Playlist Generation
//
// Playlists list the files of completed jobs, relative to the directory
// the playlist is written to:
//
//	creator := audio.NewPlaylistCreator(audio.FormatM3U, true)
//	path, err := creator.WritePlaylist(settings.DownloadDirectory, "multi-dl session",
//	    audio.EntriesFromJobs(mgr.Jobs()))
//
// Supported formats: M3U (plain or extended), PLS, WPL and ZPL.
package audio
