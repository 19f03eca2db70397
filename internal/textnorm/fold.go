package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Span is a half-open byte range into the original text.
type Span struct {
	Start int
	End   int
}

// Folded pairs the normalized form of a text with a byte-level map back to
// the original, so positions found in the folded text can be translated to
// original-text positions even when decomposition changed the length.
type Folded struct {
	Text string // normalized form

	orig    string
	offsets []int // offsets[i] = original byte offset that produced folded byte i
}

// Fold normalizes s rune by rune and records, for every byte of the folded
// output, the byte offset of the original rune that produced it.
func Fold(s string) *Folded {
	var b strings.Builder
	b.Grow(len(s))
	offsets := make([]int, 0, len(s))

	for i, r := range s {
		for _, d := range norm.NFD.String(string(r)) {
			if unicode.Is(unicode.Mn, d) {
				continue
			}
			lowered := string(unicode.ToLower(d))
			b.WriteString(lowered)
			for j := 0; j < len(lowered); j++ {
				offsets = append(offsets, i)
			}
		}
	}

	return &Folded{Text: b.String(), orig: s, offsets: offsets}
}

// Occurrences finds all non-overlapping occurrences of needle in the folded
// text and returns their spans in the original text, left to right. The
// needle is normalized before searching; an empty needle (or one that folds
// to empty) yields no occurrences. The search resumes right after each match
// end, so repeated patterns are all captured without double-counting overlaps.
func (f *Folded) Occurrences(needle string) []Span {
	n := Normalize(needle)
	if n == "" {
		return nil
	}

	var spans []Span
	from := 0
	for {
		idx := strings.Index(f.Text[from:], n)
		if idx < 0 {
			return spans
		}
		start := from + idx
		end := start + len(n)
		spans = append(spans, Span{Start: f.origOffset(start), End: f.origOffset(end)})
		from = end
	}
}

// Window returns a context window around sp, padded by up to pad runes on
// each side and clipped to the text boundaries, sliced from the original
// text.
func (f *Folded) Window(sp Span, pad int) string {
	lo := sp.Start
	for p := 0; p < pad; p++ {
		if lo == 0 {
			break
		}
		_, size := utf8.DecodeLastRuneInString(f.orig[:lo])
		lo -= size
	}

	hi := sp.End
	for p := 0; p < pad; p++ {
		if hi >= len(f.orig) {
			break
		}
		_, size := utf8.DecodeRuneInString(f.orig[hi:])
		hi += size
	}

	return f.orig[lo:hi]
}

// origOffset maps a folded byte position to an original byte position.
// Positions at or past the end of the folded text map to the end of the
// original.
func (f *Folded) origOffset(pos int) int {
	if pos >= len(f.offsets) {
		return len(f.orig)
	}
	return f.offsets[pos]
}
