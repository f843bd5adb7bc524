package http

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"time"
)

// DefaultUserAgent is sent with every request unless overridden.
const DefaultUserAgent = "multi-dl"

// Client wraps HTTP operations used by the direct download engine.
//
// Client provides:
//   - A configured User-Agent header
//   - A response header timeout (the body itself is never time limited,
//     large files may stream for as long as they need)
//   - Streaming file download with progress tracking
//
// Example usage:
//
//	client := NewClient()
//	info, err := client.DownloadFile(ctx, fileURL, "/tmp/work/job.part", func(written, total int64) {
//	    fmt.Printf("%d / %d\n", written, total)
//	})
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a new HTTP client.
//
// The default transport waits at most 60 seconds for response headers.
func NewClient(opts ...Option) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = 60 * time.Second

	c := &Client{
		httpClient: &http.Client{Transport: transport},
		userAgent:  DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ProgressWriter wraps a writer to track download progress.
//
// Example:
//
//	pw := &ProgressWriter{
//	    Writer: file,
//	    Total:  contentLength,
//	    OnUpdate: func(written, total int64) {
//	        fmt.Printf("%d / %d bytes\n", written, total)
//	    },
//	}
//	io.Copy(pw, response.Body)
type ProgressWriter struct {
	// Writer is the underlying writer to write data to.
	Writer io.Writer

	// Total is the expected total bytes (from Content-Length header),
	// or -1 when unknown.
	Total int64

	// Written is the current number of bytes written.
	Written int64

	// OnUpdate is called after each Write with current progress.
	OnUpdate func(written, total int64)
}

// Write implements io.Writer, tracking progress and calling OnUpdate.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Written += int64(n)
	if pw.OnUpdate != nil {
		pw.OnUpdate(pw.Written, pw.Total)
	}
	return n, err
}

// FileInfo describes a completed download.
type FileInfo struct {
	// Name is the server suggested file name: the Content-Disposition
	// filename when present, otherwise the last segment of the final URL.
	Name string

	// ContentType is the response Content-Type.
	ContentType string

	// Size is the number of bytes written.
	Size int64
}

// DownloadFile downloads a file to destPath with an optional progress callback.
//
// The content is streamed directly to disk. Any non-2xx response is an
// error and leaves no file behind.
//
// Parameters:
//   - ctx: Context for cancellation
//   - url: URL to download from
//   - destPath: Local file path to save to
//   - onProgress: Optional callback called with (bytesWritten, totalBytes);
//     totalBytes is -1 when the server sends no Content-Length
func (c *Client) DownloadFile(ctx context.Context, url, destPath string, onProgress func(written, total int64)) (FileInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return FileInfo{}, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return FileInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return FileInfo{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	file, err := os.Create(destPath)
	if err != nil {
		return FileInfo{}, err
	}

	pw := &ProgressWriter{
		Writer:   file,
		Total:    resp.ContentLength,
		OnUpdate: onProgress,
	}

	if _, err := io.Copy(pw, resp.Body); err != nil {
		file.Close()
		os.Remove(destPath)
		return FileInfo{}, err
	}
	if err := file.Close(); err != nil {
		return FileInfo{}, err
	}

	return FileInfo{
		Name:        suggestedName(resp),
		ContentType: resp.Header.Get("Content-Type"),
		Size:        pw.Written,
	}, nil
}

func suggestedName(resp *http.Response) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			return path.Base(params["filename"])
		}
	}
	if resp.Request != nil && resp.Request.URL != nil {
		if base := path.Base(resp.Request.URL.Path); base != "/" && base != "." {
			return base
		}
	}
	return ""
}
