package model

// MatchRule is a composite match criterion. The title terms form an OR gate:
// when present, at least one must appear in the article title or the rule
// produces nothing for that article. Body terms are OR among themselves and
// AND with the title gate.
type MatchRule struct {
	Name       string   `mapstructure:"name" yaml:"name" json:"name"`
	TitleTerms []string `mapstructure:"title_terms" yaml:"title_terms" json:"title_terms"`
	BodyTerms  []string `mapstructure:"body_terms" yaml:"body_terms" json:"body_terms"`
	Sections   []string `mapstructure:"sections" yaml:"sections,omitempty" json:"sections,omitempty"`
}

// AppliesTo reports whether the rule is active for the given section.
// An empty section list means the rule applies globally.
func (r MatchRule) AppliesTo(section string) bool {
	if len(r.Sections) == 0 {
		return true
	}
	for _, s := range r.Sections {
		if s == section {
			return true
		}
	}
	return false
}

// MatchEntry is one matched occurrence. Entries are immutable once created
// and written exactly once to the store. The keyword field carries the
// configured keyword string for simple matches and the rule name for
// composite rules.
type MatchEntry struct {
	Keyword          string `json:"keyword"`
	Context          string `json:"context"`
	Date             string `json:"date"`
	Section          string `json:"section"`
	URL              string `json:"url"`
	Title            string `json:"title"`
	CaptureTimestamp string `json:"capture_timestamp"`
}
