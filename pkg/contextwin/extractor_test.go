package contextwin

import (
	"strings"
	"testing"
)

func TestExtract_EmptyTextDegradesGracefully(t *testing.T) {
	f := Extract("")
	if f.TokenEstimate != 0 {
		t.Fatalf("expected 0 tokens for empty text, got %d", f.TokenEstimate)
	}
	if len(f.Keywords) != 0 || len(f.Entities) != 0 || len(f.CodeBlocks) != 0 {
		t.Fatalf("expected empty feature sets, got %+v", f)
	}
	if f.Topic != TopicGeneral {
		t.Fatalf("expected general topic, got %q", f.Topic)
	}
}

func TestEstimateTokens_NeverZeroForNonEmpty(t *testing.T) {
	if got := EstimateTokens("ab"); got != 1 {
		t.Fatalf("expected 1 token for 2 chars, got %d", got)
	}
	if got := EstimateTokens(strings.Repeat("x", 40)); got != 11 {
		t.Fatalf("expected 11 tokens for 40 chars, got %d", got)
	}
}

func TestExtract_StructuralKeywords(t *testing.T) {
	text := "def load_data():\n    import pandas\n    result = process(raw)"
	f := Extract(text)

	for _, want := range []string{"load_data", "pandas", "result", "process"} {
		found := false
		for _, kw := range f.Keywords {
			if kw == want {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("expected keyword %q in %v", want, f.Keywords)
		}
	}
}

func TestExtract_KeywordStopListAndCap(t *testing.T) {
	f := Extract("this that with from have what something")
	for _, kw := range f.Keywords {
		if _, stop := stopWords[kw]; stop {
			t.Fatalf("stop word %q leaked into keywords", kw)
		}
	}

	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("keyword")
		sb.WriteString(string(rune('a' + i%26)))
		sb.WriteString("word ")
	}
	f = Extract(sb.String())
	if len(f.Keywords) > maxKeywords {
		t.Fatalf("keyword cap exceeded: %d", len(f.Keywords))
	}
}

func TestExtract_DeterministicForIdenticalInput(t *testing.T) {
	text := "def run():\n    events = fetch(queue)\nUse the API with \"retry\" and HTTP and Alice Smith please"
	a := Extract(text)
	b := Extract(text)
	if strings.Join(a.Keywords, ",") != strings.Join(b.Keywords, ",") {
		t.Fatalf("keywords not deterministic: %v vs %v", a.Keywords, b.Keywords)
	}
	if strings.Join(a.Entities, ",") != strings.Join(b.Entities, ",") {
		t.Fatalf("entities not deterministic: %v vs %v", a.Entities, b.Entities)
	}
}

func TestExtract_Entities(t *testing.T) {
	f := Extract(`ask John Smith about the HTTP_TIMEOUT value in "config.ini" or 'settings.py'`)

	for _, want := range []string{"John Smith", "HTTP_TIMEOUT", "config.ini", "settings.py"} {
		found := false
		for _, e := range f.Entities {
			if e == want {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("expected entity %q in %v", want, f.Entities)
		}
	}
	if len(f.Entities) > maxEntities {
		t.Fatalf("entity cap exceeded: %d", len(f.Entities))
	}
}

func TestExtract_FencedCodeBlock(t *testing.T) {
	text := "Here you go:\n```python\nimport pandas as pd\ndf = pd.read_csv(\"data.csv\")\n```\nEnjoy."
	f := Extract(text)
	if len(f.CodeBlocks) != 1 {
		t.Fatalf("expected 1 code block, got %d", len(f.CodeBlocks))
	}
	if !strings.HasPrefix(f.CodeBlocks[0], "import pandas") {
		t.Fatalf("language tag not stripped: %q", f.CodeBlocks[0])
	}
}

func TestExtract_IndentedFallback(t *testing.T) {
	text := "Try this:\n    x = 1\n    y = 2\n\n    print(x + y)\nDone."
	f := Extract(text)
	if len(f.CodeBlocks) != 1 {
		t.Fatalf("expected 1 indented block, got %d: %v", len(f.CodeBlocks), f.CodeBlocks)
	}
	if !strings.Contains(f.CodeBlocks[0], "print(x + y)") {
		t.Fatalf("blank line split the indented block: %q", f.CodeBlocks[0])
	}
}

func TestExtract_FencedWinsOverIndented(t *testing.T) {
	text := "```\na = 1\n```\n    indented = 2\n"
	f := Extract(text)
	if len(f.CodeBlocks) != 1 || f.CodeBlocks[0] != "a = 1" {
		t.Fatalf("expected only the fenced block, got %v", f.CodeBlocks)
	}
}

func TestDetectTopic(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"How do I read a CSV file?", "file_io"},
		{"My pandas dataframe plot looks wrong, analyze this data", "data_analysis"},
		{"Fix this bug, I get an error", "code_help"},
		{"Write a function to generate a class", "code_generation"},
		{"Tell me about flask and html and css", "web_dev"},
		{"Train a neural model to predict labels", "machine_learning"},
		{"Run a sql query with a join on that table", "database"},
		{"Good morning", TopicGeneral},
	}
	for _, c := range cases {
		f := Extract(c.text)
		if f.Topic != c.want {
			t.Fatalf("text %q: expected topic %q, got %q", c.text, c.want, f.Topic)
		}
	}
}

func TestDetectTopic_TieGoesToDeclarationOrder(t *testing.T) {
	// "debug" hits only code_help, "explain" only explanation; one of each
	// keyword match ties the two topics and code_help is declared first.
	f := Extract("debug explain")
	if f.Topic != "code_help" {
		t.Fatalf("expected tie to resolve to code_help, got %q", f.Topic)
	}
}
