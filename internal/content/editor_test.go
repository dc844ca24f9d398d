package content

import (
	"reflect"
	"testing"
)

func TestInsert(t *testing.T) {
	file := File{Name: "a.pdf"}
	img := Image{Source: RemoteImage("u"), WidthPx: 750, HeightPx: 600}

	tests := []struct {
		name   string
		blocks []Block
		nb     Block
		focus  int
		caret  int
		want   []Block
	}{
		{
			name:   "split text in the middle",
			blocks: []Block{Text{Text: "hello world"}},
			nb:     file,
			focus:  0,
			caret:  5,
			want:   []Block{Text{Text: "hello"}, file, Text{Text: " world"}},
		},
		{
			name:   "caret at end keeps editable tail for non-text",
			blocks: []Block{Text{Text: "hello"}},
			nb:     img,
			focus:  0,
			caret:  5,
			want:   []Block{Text{Text: "hello"}, img, Text{}},
		},
		{
			name:   "caret at start",
			blocks: []Block{Text{Text: "hello"}},
			nb:     img,
			focus:  0,
			caret:  0,
			want:   []Block{Text{}, img, Text{Text: "hello"}},
		},
		{
			name:   "text insert at end drops empty tail",
			blocks: []Block{Text{Text: "ab"}},
			nb:     Text{Text: "X"},
			focus:  0,
			caret:  2,
			want:   []Block{Text{Text: "ab"}, Text{Text: "X"}},
		},
		{
			name:   "text insert in middle keeps tail",
			blocks: []Block{Text{Text: "ab"}},
			nb:     Text{Text: "X"},
			focus:  0,
			caret:  1,
			want:   []Block{Text{Text: "a"}, Text{Text: "X"}, Text{Text: "b"}},
		},
		{
			name:   "focus out of range appends with trailing text",
			blocks: []Block{Text{Text: "a"}},
			nb:     file,
			focus:  5,
			caret:  0,
			want:   []Block{Text{Text: "a"}, file, Text{}},
		},
		{
			name:   "negative focus appends",
			blocks: []Block{Text{Text: "a"}},
			nb:     Text{Text: "b"},
			focus:  -1,
			caret:  0,
			want:   []Block{Text{Text: "a"}, Text{Text: "b"}},
		},
		{
			name:   "focused image inserts after it",
			blocks: []Block{Text{Text: "a"}, img, Text{Text: "b"}},
			nb:     file,
			focus:  1,
			caret:  3,
			want:   []Block{Text{Text: "a"}, img, file, Text{}, Text{Text: "b"}},
		},
		{
			name:   "caret beyond text is clamped",
			blocks: []Block{Text{Text: "abc"}},
			nb:     file,
			focus:  0,
			caret:  99,
			want:   []Block{Text{Text: "abc"}, file, Text{}},
		},
		{
			name:   "caret counted in runes",
			blocks: []Block{Text{Text: "héllo"}},
			nb:     file,
			focus:  0,
			caret:  2,
			want:   []Block{Text{Text: "hé"}, file, Text{Text: "llo"}},
		},
		{
			name:   "empty document",
			blocks: nil,
			nb:     img,
			focus:  0,
			caret:  0,
			want:   []Block{img, Text{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Insert(tt.blocks, tt.nb, tt.focus, tt.caret)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Insert() =\n  %#v\nwant\n  %#v", got, tt.want)
			}
		})
	}
}

func TestInsert_DoesNotMutateInput(t *testing.T) {
	blocks := []Block{Text{Text: "hello world"}, Text{Text: "tail"}}
	orig := append([]Block(nil), blocks...)

	_ = Insert(blocks, File{Name: "f"}, 0, 5)

	if !reflect.DeepEqual(blocks, orig) {
		t.Errorf("input mutated: %#v", blocks)
	}
}

// Concatenating the text runs around the inserted block must rebuild the
// original text for every caret position.
func TestInsert_SplitReconstructsText(t *testing.T) {
	text := "lecture notes ✎"
	n := len([]rune(text))
	nb := Image{Source: RemoteImage("u"), WidthPx: 750, HeightPx: 600}

	for k := 0; k <= n; k++ {
		got := Insert([]Block{Text{Text: text}}, nb, 0, k)

		idx := -1
		count := 0
		for i, b := range got {
			if reflect.DeepEqual(b, Block(nb)) {
				idx = i
				count++
			}
		}
		if count != 1 {
			t.Fatalf("caret %d: inserted block appears %d times", k, count)
		}
		if idx != 1 {
			t.Fatalf("caret %d: inserted block at %d, want 1", k, idx)
		}

		before := got[idx-1].(Text).Text
		after := got[idx+1].(Text).Text
		if before+after != text {
			t.Errorf("caret %d: %q + %q != %q", k, before, after, text)
		}
	}
}

func TestSplitText(t *testing.T) {
	tests := []struct {
		s           string
		caret       int
		before, aft string
	}{
		{"abc", 1, "a", "bc"},
		{"abc", -3, "", "abc"},
		{"abc", 10, "abc", ""},
		{"", 0, "", ""},
	}
	for _, tt := range tests {
		b, a := SplitText(tt.s, tt.caret)
		if b != tt.before || a != tt.aft {
			t.Errorf("SplitText(%q, %d) = (%q, %q), want (%q, %q)", tt.s, tt.caret, b, a, tt.before, tt.aft)
		}
	}
}
