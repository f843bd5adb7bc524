package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	ioutils "github.com/bowenkfan/multi-dl/internal/io"
	"github.com/bowenkfan/multi-dl/internal/model"
)

// PlaylistFormat represents supported playlist file formats.
//
// Each format has different features and compatibility:
//   - M3U: Simple text format, widely supported
//   - PLS: INI-style format, used by Winamp
//   - WPL: XML format, Windows Media Player
//   - ZPL: XML format, Zune/Groove Music
type PlaylistFormat int

const (
	// FormatM3U creates .m3u files (most compatible).
	FormatM3U PlaylistFormat = iota

	// FormatPLS creates .pls files (Winamp/SHOUTcast format).
	FormatPLS

	// FormatWPL creates .wpl files (Windows Media Player).
	FormatWPL

	// FormatZPL creates .zpl files (Zune/Groove Music).
	FormatZPL
)

// ParsePlaylistFormat maps a settings value ("m3u", "pls", "wpl", "zpl")
// to a PlaylistFormat.
func ParsePlaylistFormat(s string) (PlaylistFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "m3u":
		return FormatM3U, nil
	case "pls":
		return FormatPLS, nil
	case "wpl":
		return FormatWPL, nil
	case "zpl":
		return FormatZPL, nil
	default:
		return FormatM3U, fmt.Errorf("unknown playlist format %q", s)
	}
}

// Extension returns the file extension for the format, including the dot.
func (f PlaylistFormat) Extension() string {
	switch f {
	case FormatPLS:
		return ".pls"
	case FormatWPL:
		return ".wpl"
	case FormatZPL:
		return ".zpl"
	default:
		return ".m3u"
	}
}

// Entry is one playlist item.
type Entry struct {
	// Path is the absolute path of the media file.
	Path string

	// Title is shown by players that support it.
	Title string

	// Duration is the media length; zero when unknown.
	Duration time.Duration
}

// EntriesFromJobs lists the output files of every completed job, in
// submission order.
func EntriesFromJobs(jobs []*model.Job) []Entry {
	var entries []Entry
	for _, job := range jobs {
		if job.Status() != model.StatusCompleted {
			continue
		}
		for _, file := range job.Files() {
			entries = append(entries, Entry{Path: file, Title: job.DisplayTitle()})
		}
	}
	return entries
}

// PlaylistCreator generates playlist files in various formats.
//
// Example:
//
//	creator := NewPlaylistCreator(FormatM3U, true)
//	path, err := creator.WritePlaylist(downloadDir, "session", EntriesFromJobs(mgr.Jobs()))
//
//	// Result:
//	// #EXTM3U
//	// #EXTINF:-1,Song Title
//	// Song Title.mp3
type PlaylistCreator struct {
	format   PlaylistFormat
	extended bool // For M3U: include EXTINF lines with duration/title
}

// NewPlaylistCreator creates a new PlaylistCreator.
//
// Parameters:
//   - format: The playlist format to generate
//   - extended: For M3U format, whether to include #EXTINF lines
//     (ignored for other formats)
func NewPlaylistCreator(format PlaylistFormat, extended bool) *PlaylistCreator {
	return &PlaylistCreator{
		format:   format,
		extended: extended,
	}
}

// CreatePlaylist generates playlist content for entries.
//
// Entry paths are written relative to dir, the directory the playlist will
// be saved in; paths outside dir stay absolute.
func (p *PlaylistCreator) CreatePlaylist(name, dir string, entries []Entry) string {
	switch p.format {
	case FormatPLS:
		return p.createPLS(dir, entries)
	case FormatWPL:
		return p.createWPL(name, dir, entries)
	case FormatZPL:
		return p.createZPL(name, dir, entries)
	default:
		return p.createM3U(dir, entries)
	}
}

// WritePlaylist saves a playlist named name (without extension) in dir and
// returns its path.
func (p *PlaylistCreator) WritePlaylist(dir, name string, entries []Entry) (string, error) {
	if err := ioutils.EnsureDir(dir); err != nil {
		return "", err
	}
	path := filepath.Join(dir, ioutils.SanitizeFileName(name)+p.format.Extension())
	content := p.CreatePlaylist(name, dir, entries)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", err
	}
	return path, nil
}

func relativePath(dir, path string) string {
	if rel, err := filepath.Rel(dir, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return path
}

func seconds(d time.Duration) int {
	if d <= 0 {
		return -1
	}
	return int(d.Seconds())
}

// createM3U generates an M3U playlist.
//
// Extended M3U format (when extended=true):
//
//	#EXTM3U
//	#EXTINF:180,Title
//	filename1.mp3
func (p *PlaylistCreator) createM3U(dir string, entries []Entry) string {
	var sb strings.Builder

	if p.extended {
		sb.WriteString("#EXTM3U\n")
	}

	for _, e := range entries {
		if p.extended {
			sb.WriteString(fmt.Sprintf("#EXTINF:%d,%s\n", seconds(e.Duration), e.Title))
		}
		sb.WriteString(relativePath(dir, e.Path) + "\n")
	}

	return sb.String()
}

// createPLS generates a PLS playlist.
//
// PLS format is an INI-style text file:
//
//	[playlist]
//	File1=filename1.mp3
//	Title1=Song Title
//	Length1=-1
//	NumberOfEntries=1
//	Version=2
func (p *PlaylistCreator) createPLS(dir string, entries []Entry) string {
	var sb strings.Builder

	sb.WriteString("[playlist]\n")

	for i, e := range entries {
		idx := i + 1
		sb.WriteString(fmt.Sprintf("File%d=%s\n", idx, relativePath(dir, e.Path)))
		sb.WriteString(fmt.Sprintf("Title%d=%s\n", idx, e.Title))
		sb.WriteString(fmt.Sprintf("Length%d=%d\n", idx, seconds(e.Duration)))
	}

	sb.WriteString(fmt.Sprintf("NumberOfEntries=%d\n", len(entries)))
	sb.WriteString("Version=2\n")

	return sb.String()
}

// createWPL generates a Windows Media Player playlist.
func (p *PlaylistCreator) createWPL(name, dir string, entries []Entry) string {
	var sb strings.Builder

	sb.WriteString("<?wpl version=\"1.0\"?>\n")
	sb.WriteString("<smil>\n")
	sb.WriteString("  <head>\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", escapeXML(name)))
	sb.WriteString("  </head>\n")
	sb.WriteString("  <body>\n")
	sb.WriteString("    <seq>\n")

	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("      <media src=\"%s\"/>\n", escapeXML(relativePath(dir, e.Path))))
	}

	sb.WriteString("    </seq>\n")
	sb.WriteString("  </body>\n")
	sb.WriteString("</smil>\n")

	return sb.String()
}

// createZPL generates a Zune/Groove Music playlist. It carries the entry
// title and, when known, the duration in milliseconds.
func (p *PlaylistCreator) createZPL(name, dir string, entries []Entry) string {
	var sb strings.Builder

	sb.WriteString("<?zpl version=\"2.0\"?>\n")
	sb.WriteString("<smil>\n")
	sb.WriteString("  <head>\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", escapeXML(name)))
	sb.WriteString("    <meta name=\"Generator\" content=\"multi-dl\"/>\n")
	sb.WriteString(fmt.Sprintf("    <meta name=\"ItemCount\" content=\"%d\"/>\n", len(entries)))
	sb.WriteString("  </head>\n")
	sb.WriteString("  <body>\n")
	sb.WriteString("    <seq>\n")

	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("      <media src=\"%s\" trackTitle=\"%s\"", escapeXML(relativePath(dir, e.Path)), escapeXML(e.Title)))
		if e.Duration > 0 {
			sb.WriteString(fmt.Sprintf(" duration=\"%d\"", e.Duration.Milliseconds()))
		}
		sb.WriteString("/>\n")
	}

	sb.WriteString("    </seq>\n")
	sb.WriteString("  </body>\n")
	sb.WriteString("</smil>\n")

	return sb.String()
}

// escapeXML escapes special XML characters in a string.
//
// Replaces: & < > " '
// With:     &amp; &lt; &gt; &quot; &apos;
func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	return s
}
