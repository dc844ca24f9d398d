package content

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestEncodeParse_RoundTrip(t *testing.T) {
	blocks := []Block{
		Text{Text: "Chapter 3"},
		Image{Source: RemoteImage("https://cdn.example/a.png"), WidthPx: 1024, HeightPx: 768},
		Text{Text: ""},
		Image{Source: LocalImage(42), WidthPx: 750, HeightPx: 600},
		ImageGroup{URIs: []string{"u1", "u2"}, Inline: false},
		ImageGroup{URIs: []string{"u3"}, Inline: true},
		File{Name: "slides.pdf", URI: strPtr("https://cdn.example/slides.pdf")},
		File{Name: "draft.docx"},
		Text{Text: "ünïcødé ✓"},
	}

	got := Parse(Encode(blocks)).Blocks()
	if !reflect.DeepEqual(got, blocks) {
		t.Errorf("round trip mismatch\n got: %#v\nwant: %#v", got, blocks)
	}
}

func TestEncode_ImageAlwaysBlockLevel(t *testing.T) {
	out := Encode([]Block{Image{Source: RemoteImage("x"), WidthPx: 1, HeightPx: 2}})

	var records []map[string]any
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("Encode produced invalid JSON: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0]["type"] != "image" {
		t.Errorf("type = %v, want image", records[0]["type"])
	}
	if records[0]["isInline"] != false {
		t.Errorf("isInline = %v, want false", records[0]["isInline"])
	}
}

func TestEncode_TypeLiterals(t *testing.T) {
	tests := []struct {
		block Block
		want  string
	}{
		{Text{Text: "a"}, `"type":"text"`},
		{Image{Source: RemoteImage("u")}, `"type":"image"`},
		{ImageGroup{URIs: []string{"u"}}, `"type":"imagegroup"`},
		{File{Name: "f"}, `"type":"file"`},
	}
	for _, tt := range tests {
		out := Encode([]Block{tt.block})
		if !strings.Contains(out, tt.want) {
			t.Errorf("Encode(%T) = %s, want it to contain %s", tt.block, out, tt.want)
		}
	}
}

func TestEncode_UnrepresentableDegradesToEmptyArray(t *testing.T) {
	if got := Encode([]Block{Text{Text: "a"}, nil}); got != "[]" {
		t.Errorf("Encode with nil block = %q, want []", got)
	}
	if got := Encode(nil); got != "[]" {
		t.Errorf("Encode(nil) = %q, want []", got)
	}
}

func TestParse_EmptyInputs(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n\t", "null", "[]", " [ ] "} {
		got := Parse(raw).Blocks()
		want := []Block{Text{Text: ""}}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Parse(%q) = %#v, want %#v", raw, got, want)
		}
	}
}

func TestParse_MalformedKeepsRawText(t *testing.T) {
	for _, raw := range []string{
		"just some plain text",
		"{not json",
		`{"type":"text","text":"object, not array"}`,
		`[1, 2, 3]`,
		`"a string"`,
	} {
		got := Parse(raw).Blocks()
		want := []Block{Text{Text: raw}}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Parse(%q) = %#v, want %#v", raw, got, want)
		}
	}
}

func TestParse_Defaults(t *testing.T) {
	raw := `[
		{"type":"IMAGE","imageUri":"https://x/y.png"},
		{"type":"ImageGroup","imageUris":["a","b"]},
		{"type":"imagegroup","imageUris":["c"],"isInline":false},
		{"type":"video","text":"ignored"},
		{"text":"no type"},
		{"type":"Text","text":"Hi"},
		{"type":"image","drawableResId":7,"widthPx":"320","heightPx":240.0}
	]`

	want := []Block{
		Image{Source: RemoteImage("https://x/y.png"), WidthPx: 750, HeightPx: 600},
		ImageGroup{URIs: []string{"a", "b"}, Inline: true},
		ImageGroup{URIs: []string{"c"}, Inline: false},
		Text{Text: ""},
		Text{Text: ""},
		Text{Text: "Hi"},
		Image{Source: LocalImage(7), WidthPx: 320, HeightPx: 240},
	}

	got := Parse(raw).Blocks()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Parse defaults mismatch\n got: %#v\nwant: %#v", got, want)
	}
}

func TestParseRaw_StringWrappedArray(t *testing.T) {
	inner := Encode([]Block{Text{Text: "wrapped"}})
	wrapped, err := json.Marshal(inner)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got := ParseRaw(wrapped).Blocks()
	want := []Block{Text{Text: "wrapped"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseRaw = %#v, want %#v", got, want)
	}

	got = ParseRaw(json.RawMessage(inner)).Blocks()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseRaw(array) = %#v, want %#v", got, want)
	}

	got = ParseRaw(nil).Blocks()
	if !reflect.DeepEqual(got, []Block{Text{}}) {
		t.Errorf("ParseRaw(nil) = %#v, want single empty text", got)
	}
}

func TestDocument_NeverEmpty(t *testing.T) {
	var zero Document
	if zero.Len() != 1 {
		t.Errorf("zero Document Len = %d, want 1", zero.Len())
	}
	if got := NewDocument(nil).Blocks(); len(got) != 1 || !IsText(got[0]) {
		t.Errorf("NewDocument(nil) = %#v, want single text block", got)
	}
}

func TestPlainText(t *testing.T) {
	blocks := []Block{
		Text{Text: "one"},
		Image{Source: RemoteImage("u")},
		Text{},
		Text{Text: "two"},
	}
	if got := PlainText(blocks); got != "one\ntwo" {
		t.Errorf("PlainText = %q, want %q", got, "one\ntwo")
	}
}
