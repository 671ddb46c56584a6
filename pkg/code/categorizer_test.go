package code

import (
	"testing"
)

const pandasSnippet = `import pandas as pd
df = pd.read_csv("data.csv")
df.plot()`

const flaskSnippet = `from flask import Flask, render_template
app = Flask(__name__)

@app.route("/")
def index():
    return render_template("index.html")`

func TestCategorizePandas(t *testing.T) {
	c := NewCategorizer()
	category, confidence, scores := c.Categorize(pandasSnippet)
	if category != "data_analysis" {
		t.Fatalf("expected data_analysis, got %q (scores %v)", category, scores)
	}
	if confidence <= 0 {
		t.Fatalf("expected positive confidence, got %f", confidence)
	}
	for other, score := range scores {
		if other != "data_analysis" && score > scores["data_analysis"] {
			t.Fatalf("category %s outscored data_analysis: %f > %f", other, score, scores["data_analysis"])
		}
	}
}

func TestCategorizeFlask(t *testing.T) {
	c := NewCategorizer()
	category, _, scores := c.Categorize(flaskSnippet)
	if category != "web_development" {
		t.Fatalf("expected web_development, got %q (scores %v)", category, scores)
	}
}

func TestCategorizeNoSignal(t *testing.T) {
	c := NewCategorizer()
	category, confidence, _ := c.Categorize("hello world")
	if category != "general" {
		t.Fatalf("expected general for signal-free text, got %q", category)
	}
	if confidence != 0 {
		t.Fatalf("expected zero confidence, got %f", confidence)
	}
}

func TestCategorizeStripsComments(t *testing.T) {
	c := NewCategorizer()
	// Signal words only appear inside comments and docstrings.
	snippet := "# import pandas here later\n\"\"\"uses tensorflow model train\"\"\"\nx = 1"
	category, _, _ := c.Categorize(snippet)
	if category == "data_analysis" || category == "machine_learning" {
		t.Fatalf("comment-only signals should not drive the category, got %q", category)
	}
}

func TestSuggestionsOrderedByConfidence(t *testing.T) {
	c := NewCategorizer()
	suggestions := c.Suggestions(pandasSnippet, 3)
	if len(suggestions) != 3 {
		t.Fatalf("expected 3 suggestions, got %d", len(suggestions))
	}
	if suggestions[0].Category != "data_analysis" {
		t.Fatalf("expected data_analysis first, got %q", suggestions[0].Category)
	}
	for i := 1; i < len(suggestions); i++ {
		if suggestions[i].Confidence > suggestions[i-1].Confidence {
			t.Fatalf("suggestions out of order at %d: %v", i, suggestions)
		}
	}
}

func TestHistoryBiasIsBounded(t *testing.T) {
	c := NewCategorizer()
	for i := 0; i < 50; i++ {
		c.Categorize(pandasSnippet)
	}
	// Heavy data_analysis history must not flip a clear web snippet.
	category, _, _ := c.Categorize(flaskSnippet)
	if category != "web_development" {
		t.Fatalf("history bias overrode a clear signal, got %q", category)
	}
}
