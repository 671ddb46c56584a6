package contextwin

import (
	"regexp"
	"strings"
)

const (
	maxKeywords = 20
	maxEntities = 10
)

var (
	structuralPatterns = []*regexp.Regexp{
		regexp.MustCompile(`def\s+(\w+)`),
		regexp.MustCompile(`class\s+(\w+)`),
		regexp.MustCompile(`import\s+(\w+)`),
		regexp.MustCompile(`from\s+(\w+)`),
		regexp.MustCompile(`(\w+)\s*=`),
		regexp.MustCompile(`(\w+)\(`),
	}
	wordRegex = regexp.MustCompile(`\b\w{4,}\b`)

	entityPatterns = []*regexp.Regexp{
		regexp.MustCompile(`([A-Z][a-z]+(?:\s+[A-Z][a-z]+)+)`),
		regexp.MustCompile(`([A-Z][A-Z0-9_]+)`),
		regexp.MustCompile(`"([^"]+)"`),
		regexp.MustCompile(`'([^']+)'`),
	}

	fencedCodeRegex = regexp.MustCompile("(?s)```[a-zA-Z0-9_+-]*(.*?)```")
)

var stopWords = map[string]struct{}{
	"this": {}, "that": {}, "with": {}, "from": {}, "have": {}, "what": {},
}

// topicVocabulary is scored in declaration order; ties go to the earlier topic.
var topicVocabulary = []struct {
	name     string
	keywords []string
}{
	{"code_help", []string{"help", "error", "bug", "fix", "problem", "issue", "debug"}},
	{"explanation", []string{"explain", "understand", "mean", "concept", "how", "why"}},
	{"code_generation", []string{"create", "generate", "write", "implement", "code", "function", "class"}},
	{"data_analysis", []string{"data", "analyze", "plot", "graph", "pandas", "dataframe"}},
	{"web_dev", []string{"web", "html", "css", "javascript", "flask", "django"}},
	{"machine_learning", []string{"model", "train", "predict", "ml", "ai", "neural", "learn"}},
	{"database", []string{"database", "sql", "query", "table", "join", "select"}},
	{"file_io", []string{"file", "read", "write", "open", "save", "load"}},
}

// Extract derives token estimate, keywords, entities, code blocks and topic
// from raw text. Pure function: identical input gives identical output.
func Extract(text string) Features {
	keywords := extractKeywords(text)
	return Features{
		TokenEstimate: EstimateTokens(text),
		Keywords:      keywords,
		Entities:      extractEntities(text),
		CodeBlocks:    extractCodeBlocks(text),
		Topic:         detectTopic(text, keywords),
	}
}

// EstimateTokens approximates token count as len/4+1. It is never zero for
// non-empty text and is computed exactly once per turn, at insertion.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(text)/4 + 1
}

func extractKeywords(text string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, maxKeywords)
	add := func(word string) {
		if word == "" {
			return
		}
		if _, ok := seen[word]; ok {
			return
		}
		seen[word] = struct{}{}
		if len(out) < maxKeywords {
			out = append(out, word)
		}
	}

	// Structural identifiers first so they survive the cap.
	for _, re := range structuralPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if len(m) >= 2 {
				add(m[1])
			}
		}
	}

	for _, word := range wordRegex.FindAllString(strings.ToLower(text), -1) {
		if _, stop := stopWords[word]; stop {
			continue
		}
		add(word)
	}

	return out
}

func extractEntities(text string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, maxEntities)
	for _, re := range entityPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if len(m) < 2 || m[1] == "" {
				continue
			}
			if _, ok := seen[m[1]]; ok {
				continue
			}
			seen[m[1]] = struct{}{}
			if len(out) < maxEntities {
				out = append(out, m[1])
			}
		}
	}
	return out
}

// extractCodeBlocks prefers fenced blocks; only when none are present does it
// fall back to grouping consecutive 4-space/tab indented lines (blank lines
// inside a run are kept with the block).
func extractCodeBlocks(text string) []string {
	blocks := []string{}
	for _, m := range fencedCodeRegex.FindAllStringSubmatch(text, -1) {
		if len(m) >= 2 {
			blocks = append(blocks, m[1])
		}
	}

	if len(blocks) == 0 {
		lines := strings.Split(text, "\n")
		current := []string{}
		inBlock := false
		flush := func() {
			if len(current) > 0 {
				blocks = append(blocks, strings.Join(current, "\n"))
				current = nil
			}
		}
		for _, line := range lines {
			switch {
			case strings.HasPrefix(line, "    ") || strings.HasPrefix(line, "\t"):
				inBlock = true
				current = append(current, strings.TrimSpace(line))
			case inBlock && strings.TrimSpace(line) == "":
				current = append(current, "")
			case inBlock:
				inBlock = false
				flush()
			}
		}
		flush()
	}

	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		b = strings.TrimSpace(b)
		if b != "" {
			out = append(out, b)
		}
	}
	return out
}

func detectTopic(text string, keywords []string) string {
	lower := strings.ToLower(text)

	best := TopicGeneral
	bestScore := 0.0
	for _, topic := range topicVocabulary {
		score := 0.0
		for _, kw := range keywords {
			for _, tk := range topic.keywords {
				if kw == tk {
					score++
					break
				}
			}
		}
		for _, tk := range topic.keywords {
			if strings.Contains(lower, tk) {
				score += 0.5
			}
		}
		// Strictly greater keeps the first topic on ties.
		if score > bestScore {
			bestScore = score
			best = topic.name
		}
	}
	return best
}
