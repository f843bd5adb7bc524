package audio

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2"
	"github.com/bowenkfan/multi-dl/internal/model"
)

// TagEditAction defines how to handle individual ID3 tags.
type TagEditAction int

const (
	// TagEmpty clears the tag value.
	TagEmpty TagEditAction = iota

	// TagModify updates the tag with the value from the job.
	TagModify

	// TagDoNotModify leaves the existing tag value unchanged.
	TagDoNotModify
)

// TagConfig holds tagging configuration for each ID3 field.
//
// Example:
//
//	cfg := &TagConfig{
//	    Title:    TagModify,      // use the title given at submission
//	    Comments: TagDoNotModify, // keep whatever the source embedded
//	}
type TagConfig struct {
	// Title controls the TIT2 (Title) frame. It is only written when the
	// job has an explicit title.
	Title TagEditAction

	// Comments controls the COMM (Comments) frame. TagModify records the
	// source URL.
	Comments TagEditAction
}

// DefaultTagConfig returns the default tag configuration: write the title,
// record the source URL as a comment.
func DefaultTagConfig() *TagConfig {
	return &TagConfig{
		Title:    TagModify,
		Comments: TagModify,
	}
}

// Tagger writes ID3 tags to downloaded MP3 files.
//
// Tagger implements the download manager's post-processing hook, so it can
// be plugged in with download.WithPostProcessor:
//
//	mgr, err := download.NewManager(settings, eng,
//	    download.WithPostProcessor(audio.NewTagger(nil)))
type Tagger struct {
	config *TagConfig
}

// NewTagger creates a new Tagger with the given configuration.
//
// If config is nil, DefaultTagConfig() is used.
func NewTagger(config *TagConfig) *Tagger {
	if config == nil {
		config = DefaultTagConfig()
	}
	return &Tagger{config: config}
}

// Process tags every .mp3 file among files. Other files are skipped.
func (t *Tagger) Process(ctx context.Context, job *model.Job, files []string) error {
	var failed []string
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !strings.EqualFold(filepath.Ext(path), ".mp3") {
			continue
		}
		if err := t.SaveTags(path, job); err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", filepath.Base(path), err))
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("tag %d file(s): %s", len(failed), strings.Join(failed, "; "))
	}
	return nil
}

// SaveTags writes ID3 tags for job into the MP3 file at path.
//
// Returns an error if the file cannot be opened or saved.
func (t *Tagger) SaveTags(path string, job *model.Job) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return err
	}
	defer tag.Close()

	switch t.config.Title {
	case TagEmpty:
		tag.SetTitle("")
	case TagModify:
		if job.Title != "" {
			tag.SetTitle(job.Title)
		}
	}

	switch t.config.Comments {
	case TagEmpty:
		tag.DeleteFrames(tag.CommonID("Comments"))
	case TagModify:
		tag.DeleteFrames(tag.CommonID("Comments"))
		tag.AddCommentFrame(id3v2.CommentFrame{
			Encoding:    id3v2.EncodingUTF8,
			Language:    "eng",
			Description: "source",
			Text:        job.Source,
		})
	}

	return tag.Save()
}
