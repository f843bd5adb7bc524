// Package engine defines the boundary to the external retrieval engine that
// fetches a single media URL, and provides the implementations used by
// multi-dl.
//
// An Engine receives a Request describing where files go, how to name them,
// and where to report progress:
//
//	res, err := eng.Download(ctx, engine.Request{
//	    URL:            "https://example.com/watch?v=1",
//	    OutputDir:      "/home/me/Downloads/MultiDL",
//	    WorkDir:        "/home/me/Downloads/MultiDL/.temp",
//	    OutputTemplate: engine.DefaultOutputTemplate,
//	    Quiet:          true,
//	    Progress: func(p engine.Progress) {
//	        // every field is optional
//	    },
//	})
//
// # Implementations
//
//   - YTDLP drives yt-dlp through github.com/lrstanley/go-ytdlp and supports
//     every site yt-dlp supports.
//   - Direct fetches plain file URLs over HTTP without any extractor.
//
// Use New to pick one by name ("ytdlp" or "http").
package engine
