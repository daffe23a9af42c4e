package lint

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// CategoryCount pairs a category name with its bucket's line count.
type CategoryCount struct {
	Category string
	Count    int
}

// Buckets holds classified lines per category. Every category is present,
// including empty ones; ordering follows the classifier's rule order with
// the fallback last.
type Buckets struct {
	order []string
	lines map[string][]string
}

// Categories returns the bucket names in stable order.
func (b *Buckets) Categories() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// Lines returns the lines collected for a category, in input order.
func (b *Buckets) Lines(category string) []string {
	return b.lines[category]
}

// Counts returns per-category line counts in stable order.
func (b *Buckets) Counts() []CategoryCount {
	counts := make([]CategoryCount, 0, len(b.order))
	for _, name := range b.order {
		counts = append(counts, CategoryCount{Category: name, Count: len(b.lines[name])})
	}
	return counts
}

// Total returns the number of classified lines across all buckets.
func (b *Buckets) Total() int {
	total := 0
	for _, lines := range b.lines {
		total += len(lines)
	}
	return total
}

// WriteDir writes one file per category under dir, creating the directory
// if absent. Empty buckets produce empty files; non-empty buckets are
// newline-terminated per contained line. Returns per-category counts.
func (b *Buckets) WriteDir(dir string) ([]CategoryCount, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, name := range b.order {
		path := filepath.Join(dir, name)
		content := ""
		if lines := b.lines[name]; len(lines) > 0 {
			content = strings.Join(lines, "\n") + "\n"
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
	}

	return b.Counts(), nil
}

// Splitter partitions lint output into per-category buckets.
type Splitter struct {
	classifier *Classifier
}

// NewSplitter creates a Splitter over the given classifier. Passing nil
// uses a classifier with the default rules.
func NewSplitter(classifier *Classifier) *Splitter {
	if classifier == nil {
		classifier = NewClassifier(nil)
	}
	return &Splitter{classifier: classifier}
}

// Split reads lines from r and classifies every line starting with
// MarkerPrefix. All other lines are silently dropped and appear in no
// bucket, including the fallback.
func (s *Splitter) Split(r io.Reader) (*Buckets, error) {
	buckets := &Buckets{
		order: s.classifier.Categories(),
		lines: make(map[string][]string),
	}

	scanner := bufio.NewScanner(r)
	// Lint lines carry full validation context paths and can get long.
	const maxLineSize = 1024 * 1024
	scanner.Buffer(make([]byte, maxLineSize), maxLineSize)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, MarkerPrefix) {
			continue
		}
		category := s.classifier.Classify(line)
		buckets.lines[category] = append(buckets.lines[category], line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lint output: %w", err)
	}

	return buckets, nil
}
