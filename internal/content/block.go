package content

import "strings"

// Reference size applied to images whose dimensions were not recorded.
const (
	DefaultWidthPx  = 750
	DefaultHeightPx = 600
)

// Block is one unit of note content. The set of implementations is closed:
// Text, Image, ImageGroup and File.
type Block interface {
	isBlock()
}

// Text is a run of editable text.
type Text struct {
	Text string
}

// ImageSource identifies where an image comes from. When URI is empty the
// image is a bundled local resource identified by ResourceID.
type ImageSource struct {
	ResourceID int
	URI        string
}

// LocalImage returns a source pointing at a bundled resource.
func LocalImage(id int) ImageSource {
	return ImageSource{ResourceID: id}
}

// RemoteImage returns a source pointing at a remote URI.
func RemoteImage(uri string) ImageSource {
	return ImageSource{URI: uri}
}

// IsRemote reports whether the source is a remote URI.
func (s ImageSource) IsRemote() bool {
	return s.URI != ""
}

// Image is a block-level image. Images are never inline.
type Image struct {
	Source   ImageSource
	WidthPx  int
	HeightPx int
}

// ImageGroup is an ordered gallery of remote images.
type ImageGroup struct {
	URIs   []string
	Inline bool
}

// File is an attachment reference. URI is nil until the file is uploaded.
type File struct {
	Name string
	URI  *string
}

func (Text) isBlock()       {}
func (Image) isBlock()      {}
func (ImageGroup) isBlock() {}
func (File) isBlock()       {}

// Kind returns the wire type literal for a block.
func Kind(b Block) string {
	switch b.(type) {
	case Text:
		return typeText
	case Image:
		return typeImage
	case ImageGroup:
		return typeImageGroup
	case File:
		return typeFile
	default:
		return ""
	}
}

// IsText reports whether b is a text run.
func IsText(b Block) bool {
	_, ok := b.(Text)
	return ok
}

// PlainText joins the text runs of blocks with newlines. Non-text blocks are
// skipped. It is used for previews and search.
func PlainText(blocks []Block) string {
	var parts []string
	for _, b := range blocks {
		switch v := b.(type) {
		case Text:
			if v.Text != "" {
				parts = append(parts, v.Text)
			}
		case Image, ImageGroup, File:
		}
	}
	return strings.Join(parts, "\n")
}
