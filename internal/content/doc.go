// Package content defines the rich note body model used by campusnote.
//
// # Overview
//
// A note body is an ordered list of blocks. Each block is one of four closed
// variants:
//
//   - Text       - a run of editable text
//   - Image      - a block-level image (local resource or remote URI)
//   - ImageGroup - an ordered gallery of remote images
//   - File       - a file attachment reference
//
// Blocks travel inside the note record as a flat JSON array:
//
//	[
//	  {"type": "text", "text": "Chapter 3"},
//	  {"type": "image", "imageUri": "https://cdn/x.png", "widthPx": 750, "heightPx": 600, "isInline": false},
//	  {"type": "file", "fileName": "slides.pdf", "fileUri": "https://cdn/slides.pdf"}
//	]
//
// # Decoding
//
// Parse never fails. Blank input, "null" and "[]" decode to a single empty
// text block. Input that is not an array of records decodes to a single text
// block holding the raw input, so a damaged body stays visible to the user.
//
// # Editing
//
// Insert places a new block at the caret of the focused block, splitting the
// focused text run in two when needed:
//
//	blocks := []content.Block{content.Text{Text: "hello world"}}
//	blocks = content.Insert(blocks, content.File{Name: "a.pdf"}, 0, 5)
//	// [Text{"hello"}, File{"a.pdf"}, Text{" world"}]
package content
