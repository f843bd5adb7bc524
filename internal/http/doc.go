// Package http provides the HTTP client used to fetch direct file URLs.
//
// The Client in this package handles:
//   - User-Agent headers
//   - Streaming downloads with progress tracking
//   - Server suggested file names (Content-Disposition or URL path)
//
// # Basic Usage
//
//	client := http.NewClient()
//	info, err := client.DownloadFile(ctx, fileURL, "/tmp/work/abc.part", func(written, total int64) {
//	    fmt.Printf("%d/%d\n", written, total)
//	})
//	fmt.Println(info.Name) // e.g. "report.pdf"
//
// # Progress Tracking
//
// The ProgressWriter type can be used to wrap any io.Writer for progress tracking:
//
//	pw := &http.ProgressWriter{
//	    Writer:   file,
//	    Total:    contentLength,
//	    OnUpdate: func(written, total int64) { /* update UI */ },
//	}
package http
