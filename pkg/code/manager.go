// Package code detects, extracts, categorizes, and archives Python snippets
// found in assistant replies.
package code

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var (
	fencedPythonRegex = regexp.MustCompile("(?s)```python(.*?)```")

	// Signals that a piece of text contains Python source.
	codeSignalRegexes = []*regexp.Regexp{
		regexp.MustCompile(`def\s+\w+\s*\(`),
		regexp.MustCompile(`class\s+\w+\s*(\(.*?\))?:`),
		regexp.MustCompile(`import\s+[\w.]+`),
		regexp.MustCompile(`from\s+[\w.]+\s+import`),
		regexp.MustCompile(`if\s+.+:`),
		regexp.MustCompile(`for\s+.+:`),
		regexp.MustCompile(`while\s+.+:`),
		regexp.MustCompile(`try:`),
		regexp.MustCompile(`except\s+`),
		regexp.MustCompile(`@\w+`),
	}

	codeLineRegex = regexp.MustCompile(`^(def\s+\w+|class\s+\w+|import\s+|from\s+.+\s+import|if\s+.+:|for\s+.+:|while\s+.+:)`)
)

// Manager saves extracted snippets under a per-category folder tree.
type Manager struct {
	saveFolder string
	now        func() time.Time
}

func NewManager(saveFolder string) (*Manager, error) {
	if saveFolder == "" {
		saveFolder = "bot_outputs"
	}
	if err := os.MkdirAll(saveFolder, 0o755); err != nil {
		return nil, fmt.Errorf("create save folder: %w", err)
	}
	return &Manager{saveFolder: saveFolder, now: time.Now}, nil
}

// DetectCode reports whether text looks like it contains Python code.
func (m *Manager) DetectCode(text string) bool {
	if fencedPythonRegex.MatchString(text) {
		return true
	}
	for _, re := range codeSignalRegexes {
		if re.MatchString(text) {
			return true
		}
	}

	// Heuristic: many Python-style indented lines suggest a bare snippet.
	lines := strings.Split(text, "\n")
	indented := 0
	for _, line := range lines {
		if strings.HasPrefix(line, "    ") || strings.HasPrefix(line, "\t") {
			indented++
		}
	}
	return indented > 2 && float64(indented)/float64(len(lines)) > 0.3
}

// ExtractCode pulls Python source out of text. Fenced blocks win; otherwise
// statement and indentation heuristics assemble contiguous code lines.
func (m *Manager) ExtractCode(text string) string {
	if blocks := fencedPythonRegex.FindAllStringSubmatch(text, -1); len(blocks) > 0 {
		return strings.TrimSpace(blocks[0][1])
	}

	var codeLines []string
	inBlock := false
	for _, line := range strings.Split(text, "\n") {
		switch {
		case codeLineRegex.MatchString(strings.TrimSpace(line)):
			inBlock = true
			codeLines = append(codeLines, line)
		case strings.HasPrefix(line, "    ") || strings.HasPrefix(line, "\t"):
			if inBlock {
				codeLines = append(codeLines, line)
			}
		case strings.TrimSpace(line) == "" && inBlock:
			codeLines = append(codeLines, line)
		default:
			inBlock = false
		}
	}
	return strings.Join(codeLines, "\n")
}

// SaveCode writes the snippet under <saveFolder>/<category>/code_<timestamp>.py
// and returns the path written.
func (m *Manager) SaveCode(snippet, category string) (string, error) {
	if category == "" {
		category = "general"
	}
	categoryFolder := filepath.Join(m.saveFolder, category)
	if err := os.MkdirAll(categoryFolder, 0o755); err != nil {
		return "", fmt.Errorf("create category folder: %w", err)
	}

	filename := filepath.Join(categoryFolder, fmt.Sprintf("code_%s.py", m.now().Format("20060102_150405")))
	if err := os.WriteFile(filename, []byte(snippet), 0o644); err != nil {
		return "", fmt.Errorf("write snippet: %w", err)
	}
	return filename, nil
}
