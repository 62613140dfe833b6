package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/wordvec/internal/models"
)

func sampleSimilar() *models.SimilarResponse {
	return &models.SimilarResponse{
		Word:  "apple",
		Count: 2,
		Results: []models.QueryResult{
			{Distance: 0, Word: "apple"},
			{Distance: 0.0061, Word: "orange"},
		},
	}
}

func TestParseOutputFormat(t *testing.T) {
	for _, s := range []string{"text", "compact", "json"} {
		if _, err := ParseOutputFormat(s); err != nil {
			t.Errorf("ParseOutputFormat(%q): %v", s, err)
		}
	}
	if _, err := ParseOutputFormat("yaml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWriteSimilar_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSimilar(&buf, sampleSimilar(), OutputJSON); err != nil {
		t.Fatalf("WriteSimilar(json): %v", err)
	}
	var decoded models.SimilarResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Word != "apple" || len(decoded.Results) != 2 || decoded.Results[1].Word != "orange" {
		t.Errorf("unexpected decoded response: %+v", decoded)
	}
}

func TestWriteSimilar_Compact(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSimilar(&buf, sampleSimilar(), OutputCompact); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	if lines[1] != "0.006100\torange" {
		t.Errorf("line 2 = %q", lines[1])
	}
}

func TestWriteSimilar_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSimilar(&buf, sampleSimilar(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{`2 words nearest to "apple"`, "RANK", "orange", "0.9939"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteVector(t *testing.T) {
	resp := &models.VectorResponse{Word: "apple", Vector: []float32{1, 0.5}}
	var buf bytes.Buffer
	if err := WriteVector(&buf, resp, OutputCompact); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "apple 1 0.5\n" {
		t.Errorf("compact = %q", buf.String())
	}
	buf.Reset()
	if err := WriteVector(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "dimension:  2") {
		t.Errorf("text output:\n%s", buf.String())
	}
}

func TestWriteSuggestions(t *testing.T) {
	var buf bytes.Buffer
	_ = WriteSuggestions(&buf, &models.SuggestResponse{Word: "aple", Suggestions: []string{"apple", "apples"}}, OutputText)
	if !strings.Contains(buf.String(), "Did you mean: apple, apples") {
		t.Errorf("text output: %q", buf.String())
	}
	buf.Reset()
	_ = WriteSuggestions(&buf, &models.SuggestResponse{Word: "zzz"}, OutputText)
	if !strings.Contains(buf.String(), "No suggestions") {
		t.Errorf("empty output: %q", buf.String())
	}
}

func TestWriteStatus(t *testing.T) {
	status := &models.StatusResponse{
		BuildID: "b1", Words: 3, Dimension: 2, Stale: true,
		Index: models.IndexStatus{Type: "lsh", Size: 3, Tables: 16, Planes: 12, Seed: 42},
	}
	var buf bytes.Buffer
	if err := WriteStatus(&buf, status, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"words:           3", "stale:           true", "seed:            42"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestTruncateWords(t *testing.T) {
	tests := []struct {
		name     string
		s        string
		maxWords int
		want     string
	}{
		{"fewer", "a b", 3, "a b"},
		{"exact", "a b c", 3, "a b c"},
		{"more", "a b c d", 2, "a b ..."},
		{"empty", "", 2, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateWords(tt.s, tt.maxWords); got != tt.want {
				t.Errorf("TruncateWords(%q, %d) = %q, want %q", tt.s, tt.maxWords, got, tt.want)
			}
		})
	}
}
