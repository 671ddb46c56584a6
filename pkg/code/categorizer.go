package code

import (
	"regexp"
	"sort"
	"strings"
	"sync"
)

const (
	importWeight    = 3.0
	structureWeight = 2.0
	keywordWeight   = 1.0

	// Learning history may boost a category score by at most 20%.
	maxHistoryBoost = 0.2
)

// keywordTiers groups category keywords by signal strength.
type keywordTiers struct {
	high   []string
	medium []string
	low    []string
}

// categoryOrder fixes tie-breaking for equal scores.
var categoryOrder = []string{
	"data_analysis",
	"web_development",
	"machine_learning",
	"automation",
	"database",
	"file_processing",
	"algorithms",
	"system",
	"networking",
	"gui",
}

var categoryKeywords = map[string]keywordTiers{
	"data_analysis": {
		high:   []string{"pandas", "numpy", "matplotlib", "seaborn", "dataframe", "plot", "visualization"},
		medium: []string{"data", "analysis", "statistics", "csv", "excel", "chart", "graph"},
		low:    []string{"series", "column", "row", "figure", "axis"},
	},
	"web_development": {
		high:   []string{"flask", "django", "fastapi", "http", "request", "response", "api"},
		medium: []string{"html", "css", "javascript", "route", "endpoint", "server", "client"},
		low:    []string{"get", "post", "template", "static", "render"},
	},
	"machine_learning": {
		high:   []string{"sklearn", "tensorflow", "keras", "pytorch", "model", "train", "predict"},
		medium: []string{"classifier", "regression", "neural", "network", "accuracy", "precision", "recall"},
		low:    []string{"feature", "label", "dataset", "batch", "epoch"},
	},
	"automation": {
		high:   []string{"selenium", "beautifulsoup", "scrape", "automate", "schedule", "cron", "task"},
		medium: []string{"browser", "headless", "parse", "extract", "collect", "periodic"},
		low:    []string{"click", "fill", "submit", "download"},
	},
	"database": {
		high:   []string{"sql", "sqlite", "mysql", "postgresql", "mongodb", "query", "database"},
		medium: []string{"table", "schema", "index", "join", "select", "insert", "update"},
		low:    []string{"record", "field", "column", "row", "primary", "foreign", "key"},
	},
	"file_processing": {
		high:   []string{"file", "open", "read", "write", "json", "csv", "xml"},
		medium: []string{"path", "directory", "folder", "parse", "format", "encode", "decode"},
		low:    []string{"line", "content", "text", "binary", "stream"},
	},
	"algorithms": {
		high:   []string{"algorithm", "sort", "search", "graph", "tree", "recursion", "dynamic"},
		medium: []string{"complexity", "optimization", "efficient", "performance", "structure"},
		low:    []string{"iterate", "traverse", "compute", "calculate"},
	},
	"system": {
		high:   []string{"os", "system", "process", "thread", "subprocess", "command", "shell"},
		medium: []string{"environment", "variable", "path", "platform", "service", "daemon"},
		low:    []string{"execute", "run", "terminate", "kill", "status"},
	},
	"networking": {
		high:   []string{"socket", "http", "tcp", "udp", "ip", "request", "response"},
		medium: []string{"client", "server", "protocol", "packet", "connection", "url"},
		low:    []string{"port", "host", "domain", "address", "send", "receive"},
	},
	"gui": {
		high:   []string{"tkinter", "pyqt", "pyside", "kivy", "gui", "widget", "window"},
		medium: []string{"button", "label", "frame", "canvas", "event", "interface"},
		low:    []string{"click", "display", "show", "hide", "layout"},
	},
}

var importPatterns = map[string][]*regexp.Regexp{
	"data_analysis": {
		regexp.MustCompile(`import\s+(pandas|numpy|matplotlib|seaborn|plotly)`),
		regexp.MustCompile(`from\s+(pandas|numpy|matplotlib|seaborn|plotly)(\.\w+)?\s+import`),
	},
	"web_development": {
		regexp.MustCompile(`import\s+(flask|django|fastapi|requests|aiohttp|tornado|bottle)`),
		regexp.MustCompile(`from\s+(flask|django|fastapi|requests|aiohttp|tornado|bottle)(\.\w+)?\s+import`),
	},
	"machine_learning": {
		regexp.MustCompile(`import\s+(sklearn|tensorflow|keras|torch|xgboost)`),
		regexp.MustCompile(`from\s+(sklearn|tensorflow|keras|torch|xgboost)(\.\w+)?\s+import`),
	},
	"automation": {
		regexp.MustCompile(`import\s+(selenium|bs4|scrapy|schedule)`),
		regexp.MustCompile(`from\s+(selenium|bs4|scrapy|schedule)(\.\w+)?\s+import`),
	},
	"database": {
		regexp.MustCompile(`import\s+(sqlite3|mysql|psycopg2|pymongo|sqlalchemy)`),
		regexp.MustCompile(`from\s+(sqlite3|mysql|psycopg2|pymongo|sqlalchemy)(\.\w+)?\s+import`),
	},
	"system": {
		regexp.MustCompile(`import\s+(os|sys|subprocess|platform|shutil)`),
		regexp.MustCompile(`from\s+(os|sys|subprocess|platform|shutil)(\.\w+)?\s+import`),
	},
	"networking": {
		regexp.MustCompile(`import\s+(socket|http|urllib|requests)`),
		regexp.MustCompile(`from\s+(socket|http|urllib|requests)(\.\w+)?\s+import`),
	},
	"gui": {
		regexp.MustCompile(`import\s+(tkinter|PyQt5|PySide2|kivy)`),
		regexp.MustCompile(`from\s+(tkinter|PyQt5|PySide2|kivy)(\.\w+)?\s+import`),
	},
}

var structurePatterns = map[string][]*regexp.Regexp{
	"data_analysis": {
		regexp.MustCompile(`\.plot\(`),
		regexp.MustCompile(`\.DataFrame\(`),
		regexp.MustCompile(`\.read_csv\(`),
		regexp.MustCompile(`\.read_excel\(`),
	},
	"web_development": {
		regexp.MustCompile(`@app\.route\(`),
		regexp.MustCompile(`@app\.get\(`),
		regexp.MustCompile(`@app\.post\(`),
		regexp.MustCompile(`Flask\(__name__\)`),
		regexp.MustCompile(`render_template\(`),
	},
	"machine_learning": {
		regexp.MustCompile(`\.fit\(`),
		regexp.MustCompile(`\.predict\(`),
		regexp.MustCompile(`train_test_split\(`),
		regexp.MustCompile(`\.compile\(`),
		regexp.MustCompile(`\.evaluate\(`),
	},
	"automation": {
		regexp.MustCompile(`\.find_element\(`),
		regexp.MustCompile(`\.click\(\)`),
		regexp.MustCompile(`\.send_keys\(`),
		regexp.MustCompile(`BeautifulSoup\(`),
	},
	"database": {
		regexp.MustCompile(`\.execute\(`),
		regexp.MustCompile(`\.cursor\(\)`),
		regexp.MustCompile(`\.commit\(\)`),
		regexp.MustCompile(`\.connect\(`),
	},
}

var (
	lineCommentRegex = regexp.MustCompile(`(?m)#.*$`)
	docstringRegex   = regexp.MustCompile(`(?s)""".*?"""`)
	docstringRegexS  = regexp.MustCompile(`(?s)'''.*?'''`)
	whitespaceRegex  = regexp.MustCompile(`\s+`)
)

// Suggestion pairs a category with its normalized confidence.
type Suggestion struct {
	Category   string
	Confidence float64
}

// Categorizer scores Python snippets against category signals. Imports are
// the strongest signal, structure patterns next, bare keywords weakest. A
// small history bias favors categories this instance has seen before.
type Categorizer struct {
	mu      sync.Mutex
	history map[string]int
	total   int
}

func NewCategorizer() *Categorizer {
	return &Categorizer{history: make(map[string]int)}
}

// Categorize returns the best category, its normalized confidence, and the
// full normalized score map. Snippets with no signal fall back to "general".
func (c *Categorizer) Categorize(snippet string) (string, float64, map[string]float64) {
	normalized := normalizeCode(snippet)

	importScores := normalizedMatchCounts(importPatterns, normalized)
	structureScores := normalizedMatchCounts(structurePatterns, normalized)
	keywordScores := keywordMatchScores(normalized)

	scores := make(map[string]float64, len(categoryOrder))
	for _, category := range categoryOrder {
		scores[category] = importWeight*importScores[category] +
			structureWeight*structureScores[category] +
			keywordWeight*keywordScores[category]
	}

	c.mu.Lock()
	for category, count := range c.history {
		boost := float64(count) / float64(c.total+1)
		if boost > maxHistoryBoost {
			boost = maxHistoryBoost
		}
		scores[category] *= 1 + boost
	}
	c.mu.Unlock()

	best := ""
	bestScore := 0.0
	total := 0.0
	for _, category := range categoryOrder {
		total += scores[category]
		if best == "" || scores[category] > bestScore {
			best = category
			bestScore = scores[category]
		}
	}

	normalizedScores := make(map[string]float64, len(scores))
	confidence := 0.0
	if total > 0 {
		for category, score := range scores {
			normalizedScores[category] = score / total
		}
		confidence = normalizedScores[best]
	} else {
		for category := range scores {
			normalizedScores[category] = 0
		}
		best = "general"
	}

	c.mu.Lock()
	c.history[best]++
	c.total++
	c.mu.Unlock()

	return best, confidence, normalizedScores
}

// Suggestions returns the topN categories ranked by confidence.
func (c *Categorizer) Suggestions(snippet string, topN int) []Suggestion {
	_, _, scores := c.Categorize(snippet)

	out := make([]Suggestion, 0, len(scores))
	for category, confidence := range scores {
		out = append(out, Suggestion{Category: category, Confidence: confidence})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Category < out[j].Category
	})
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}

func normalizeCode(code string) string {
	code = lineCommentRegex.ReplaceAllString(code, "")
	code = docstringRegex.ReplaceAllString(code, "")
	code = docstringRegexS.ReplaceAllString(code, "")
	return whitespaceRegex.ReplaceAllString(code, " ")
}

func normalizedMatchCounts(patterns map[string][]*regexp.Regexp, code string) map[string]float64 {
	counts := make(map[string]float64)
	total := 0.0
	for category, regexes := range patterns {
		n := 0
		for _, re := range regexes {
			n += len(re.FindAllString(code, -1))
		}
		if n > 0 {
			counts[category] = float64(n)
			total += float64(n)
		}
	}
	if total == 0 {
		return counts
	}
	for category := range counts {
		counts[category] /= total
	}
	return counts
}

func keywordMatchScores(code string) map[string]float64 {
	lower := strings.ToLower(code)

	scores := make(map[string]float64)
	total := 0.0
	for category, tiers := range categoryKeywords {
		score := 0
		for _, kw := range tiers.high {
			score += strings.Count(lower, kw) * 3
		}
		for _, kw := range tiers.medium {
			score += strings.Count(lower, kw) * 2
		}
		for _, kw := range tiers.low {
			score += strings.Count(lower, kw)
		}
		if score > 0 {
			scores[category] = float64(score)
			total += float64(score)
		}
	}
	if total == 0 {
		return scores
	}
	for category := range scores {
		scores[category] /= total
	}
	return scores
}
