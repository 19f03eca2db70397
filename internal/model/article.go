package model

// Article is the transient per-URL unit of work. It is built after a
// successful fetch, consumed by the matcher, and discarded. Body keeps the
// original casing and accents because it is the text surfaced to users as
// match context; the normalized forms exist only for comparison.
type Article struct {
	URL             string
	RawHTML         string
	Title           string
	NormalizedTitle string
	Body            string
	NormalizedBody  string
}
