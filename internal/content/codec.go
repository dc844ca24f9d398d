package content

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

const (
	typeText       = "text"
	typeImage      = "image"
	typeImageGroup = "imagegroup"
	typeFile       = "file"
)

// emptyArray is the encoding used when blocks cannot be represented.
const emptyArray = "[]"

// Document is a decoded note body. It always holds at least one block.
type Document struct {
	blocks []Block
}

// NewDocument wraps blocks, substituting a single empty text block when
// blocks is empty.
func NewDocument(blocks []Block) Document {
	if len(blocks) == 0 {
		return Document{blocks: []Block{Text{}}}
	}
	out := make([]Block, len(blocks))
	copy(out, blocks)
	return Document{blocks: out}
}

// Blocks returns a copy of the document's blocks.
func (d Document) Blocks() []Block {
	if len(d.blocks) == 0 {
		return []Block{Text{}}
	}
	out := make([]Block, len(d.blocks))
	copy(out, d.blocks)
	return out
}

// Len returns the number of blocks. It is never zero.
func (d Document) Len() int {
	if len(d.blocks) == 0 {
		return 1
	}
	return len(d.blocks)
}

// record is the flat wire shape of a single block.
type record struct {
	Type          string   `json:"type"`
	Text          *string  `json:"text,omitempty"`
	ImageURI      *string  `json:"imageUri,omitempty"`
	DrawableResID *flexInt `json:"drawableResId,omitempty"`
	WidthPx       *flexInt `json:"widthPx,omitempty"`
	HeightPx      *flexInt `json:"heightPx,omitempty"`
	IsInline      *bool    `json:"isInline,omitempty"`
	FileName      *string  `json:"fileName,omitempty"`
	FileURI       *string  `json:"fileUri,omitempty"`
	ImageURIs     []string `json:"imageUris,omitempty"`
}

// flexInt accepts JSON numbers (including floats) and numeric strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	if n, err := strconv.Atoi(s); err == nil {
		*f = flexInt(n)
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexInt(math.Trunc(v))
	return nil
}

// Encode serializes blocks to the wire JSON array. It never fails: input that
// cannot be represented encodes as an empty array.
func Encode(blocks []Block) string {
	records := make([]record, 0, len(blocks))
	for _, b := range blocks {
		r, ok := toRecord(b)
		if !ok {
			return emptyArray
		}
		records = append(records, r)
	}

	data, err := json.Marshal(records)
	if err != nil {
		return emptyArray
	}
	return string(data)
}

// EncodeRaw is Encode returning a json.RawMessage for embedding in requests.
func EncodeRaw(blocks []Block) json.RawMessage {
	return json.RawMessage(Encode(blocks))
}

func toRecord(b Block) (record, bool) {
	switch v := b.(type) {
	case Text:
		text := v.Text
		return record{Type: typeText, Text: &text}, true
	case Image:
		w, h := flexInt(v.WidthPx), flexInt(v.HeightPx)
		inline := false
		r := record{Type: typeImage, WidthPx: &w, HeightPx: &h, IsInline: &inline}
		if v.Source.IsRemote() {
			uri := v.Source.URI
			r.ImageURI = &uri
		} else {
			id := flexInt(v.Source.ResourceID)
			r.DrawableResID = &id
		}
		return r, true
	case ImageGroup:
		inline := v.Inline
		uris := v.URIs
		if uris == nil {
			uris = []string{}
		}
		return record{Type: typeImageGroup, ImageURIs: uris, IsInline: &inline}, true
	case File:
		name := v.Name
		r := record{Type: typeFile, FileName: &name}
		if v.URI != nil {
			uri := *v.URI
			r.FileURI = &uri
		}
		return r, true
	default:
		return record{}, false
	}
}

// Parse decodes a wire JSON array into a document. It never fails.
func Parse(raw string) Document {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "null" || trimmed == emptyArray {
		return NewDocument(nil)
	}

	var records []record
	if err := json.Unmarshal([]byte(trimmed), &records); err != nil {
		return NewDocument([]Block{Text{Text: raw}})
	}

	blocks := make([]Block, 0, len(records))
	for _, r := range records {
		blocks = append(blocks, fromRecord(r))
	}
	return NewDocument(blocks)
}

// ParseRaw decodes the content field of a note record. The field may hold
// the array itself or a JSON string containing the array.
func ParseRaw(raw json.RawMessage) Document {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return Parse(s)
		}
	}
	return Parse(string(trimmed))
}

func fromRecord(r record) Block {
	switch strings.ToLower(strings.TrimSpace(r.Type)) {
	case typeText:
		return Text{Text: deref(r.Text)}
	case typeImage:
		img := Image{WidthPx: DefaultWidthPx, HeightPx: DefaultHeightPx}
		if r.WidthPx != nil {
			img.WidthPx = int(*r.WidthPx)
		}
		if r.HeightPx != nil {
			img.HeightPx = int(*r.HeightPx)
		}
		if uri := deref(r.ImageURI); uri != "" {
			img.Source = RemoteImage(uri)
		} else if r.DrawableResID != nil {
			img.Source = LocalImage(int(*r.DrawableResID))
		}
		return img
	case typeImageGroup:
		group := ImageGroup{URIs: r.ImageURIs, Inline: true}
		if group.URIs == nil {
			group.URIs = []string{}
		}
		if r.IsInline != nil {
			group.Inline = *r.IsInline
		}
		return group
	case typeFile:
		f := File{Name: deref(r.FileName)}
		if r.FileURI != nil {
			uri := *r.FileURI
			f.URI = &uri
		}
		return f
	default:
		return Text{}
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
