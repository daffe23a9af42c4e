package lint

// Classifier assigns lint lines to categories by first-match-wins over an
// ordered rule list.
type Classifier struct {
	rules []Rule
}

// NewClassifier creates a Classifier over the given rules. Passing nil uses
// the default rules.
func NewClassifier(rules []Rule) *Classifier {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Classifier{rules: rules}
}

// Classify returns the category of the first rule matching the line, or
// FallbackCategory when none matches. The marker-prefix filter is not
// applied here; that is the splitter's responsibility.
func (c *Classifier) Classify(line string) string {
	for _, rule := range c.rules {
		if rule.Matches(line) {
			return rule.Category
		}
	}
	return FallbackCategory
}

// Categories returns all category names in rule order, with the fallback
// category last.
func (c *Classifier) Categories() []string {
	names := make([]string, 0, len(c.rules)+1)
	for _, rule := range c.rules {
		names = append(names, rule.Category)
	}
	return append(names, FallbackCategory)
}
