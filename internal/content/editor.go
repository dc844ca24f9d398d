package content

// Insert returns a new block list with nb inserted at the caret of the focused
// block. blocks is not modified.
//
//   - focus out of range: nb is appended, followed by an empty text run when nb
//     is not text.
//   - focused text run: the run is split at caret (in runes, clamped to the run
//     length); nb goes between the halves. The tail half is kept when it is
//     non-empty or when nb is not text.
//   - focused non-text block: nb goes right after it, followed by an empty text
//     run when nb is not text.
func Insert(blocks []Block, nb Block, focus, caret int) []Block {
	out := make([]Block, 0, len(blocks)+3)
	trailing := !IsText(nb)

	if focus < 0 || focus >= len(blocks) {
		out = append(out, blocks...)
		out = append(out, nb)
		if trailing {
			out = append(out, Text{})
		}
		return out
	}

	out = append(out, blocks[:focus]...)

	switch cur := blocks[focus].(type) {
	case Text:
		before, after := SplitText(cur.Text, caret)
		out = append(out, Text{Text: before}, nb)
		if after != "" || trailing {
			out = append(out, Text{Text: after})
		}
	case Image, ImageGroup, File:
		out = append(out, cur, nb)
		if trailing {
			out = append(out, Text{})
		}
	default:
		out = append(out, cur, nb)
		if trailing {
			out = append(out, Text{})
		}
	}

	return append(out, blocks[focus+1:]...)
}

// SplitText splits s at the rune offset caret. caret is clamped to
// [0, number of runes in s].
func SplitText(s string, caret int) (string, string) {
	runes := []rune(s)
	if caret < 0 {
		caret = 0
	}
	if caret > len(runes) {
		caret = len(runes)
	}
	return string(runes[:caret]), string(runes[caret:])
}
