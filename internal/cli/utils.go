// Package cli provides output formatting and an HTTP client for the wordvec CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/hyperjump/wordvec/internal/models"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputCompact prints one result per line.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates an --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case OutputText, OutputCompact, OutputJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text, compact, or json", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSimilar writes nearest-neighbor results to w in the given format.
func WriteSimilar(w io.Writer, response *models.SimilarResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, response)
	case OutputCompact:
		for _, r := range response.Results {
			fmt.Fprintf(w, "%.6f\t%s\n", r.Distance, r.Word)
		}
		return nil
	default:
		fmt.Fprintf(w, "\n%d words nearest to %q\n\n", response.Count, response.Word)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "RANK\tDISTANCE\tSIMILARITY\tWORD")
		for i, r := range response.Results {
			fmt.Fprintf(tw, "%d\t%.4f\t%.4f\t%s\n", i+1, r.Distance, 1-r.Distance, r.Word)
		}
		return tw.Flush()
	}
}

// WriteVector writes a word vector to w in the given format.
func WriteVector(w io.Writer, response *models.VectorResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, response)
	case OutputCompact:
		parts := make([]string, len(response.Vector))
		for i, v := range response.Vector {
			parts[i] = fmt.Sprintf("%g", v)
		}
		fmt.Fprintf(w, "%s %s\n", response.Word, strings.Join(parts, " "))
		return nil
	default:
		fmt.Fprintf(w, "word:       %s\n", response.Word)
		fmt.Fprintf(w, "dimension:  %d\n", len(response.Vector))
		fmt.Fprintf(w, "vector:     %s\n", TruncateWords(strings.Trim(fmt.Sprint(response.Vector), "[]"), 8))
		return nil
	}
}

// WriteSuggestions writes vocabulary suggestions to w in the given format.
func WriteSuggestions(w io.Writer, response *models.SuggestResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, response)
	case OutputCompact:
		for _, s := range response.Suggestions {
			fmt.Fprintln(w, s)
		}
		return nil
	default:
		if len(response.Suggestions) == 0 {
			fmt.Fprintf(w, "No suggestions for %q\n", response.Word)
			return nil
		}
		fmt.Fprintf(w, "Did you mean: %s\n", strings.Join(response.Suggestions, ", "))
		return nil
	}
}

// WriteStatus writes server status to w in the given format.
func WriteStatus(w io.Writer, status *models.StatusResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, status)
	}
	fmt.Fprintf(w, "build_id:        %s\n", status.BuildID)
	fmt.Fprintf(w, "source:          %s   # %s\n", status.Source, status.Format)
	fmt.Fprintf(w, "source_bytes:    %d   # embedding file size on disk\n", status.SourceBytes)
	fmt.Fprintf(w, "words:           %d   # count of stored embeddings\n", status.Words)
	fmt.Fprintf(w, "dimension:       %d\n", status.Dimension)
	if status.Duplicates > 0 {
		fmt.Fprintf(w, "duplicates:      %d   # repeated words; the later one answers lookups\n", status.Duplicates)
	}
	if status.ZeroVectors > 0 {
		fmt.Fprintf(w, "zero_vectors:    %d\n", status.ZeroVectors)
	}
	fmt.Fprintf(w, "load_time_ms:    %d\n", status.LoadTimeMs)
	fmt.Fprintf(w, "uptime_seconds:  %d\n", status.UptimeSeconds)
	fmt.Fprintf(w, "suggestions:     %t\n", status.Suggestions)
	if status.Stale {
		fmt.Fprintln(w, "stale:           true   # embedding file changed; restart to reload")
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "# index")
	fmt.Fprintf(w, "type:            %s\n", status.Index.Type)
	fmt.Fprintf(w, "size:            %d\n", status.Index.Size)
	if status.Index.Tables > 0 {
		fmt.Fprintf(w, "tables:          %d\n", status.Index.Tables)
		fmt.Fprintf(w, "planes:          %d\n", status.Index.Planes)
		fmt.Fprintf(w, "buckets:         %d\n", status.Index.Buckets)
		fmt.Fprintf(w, "largest_bucket:  %d\n", status.Index.LargestBucket)
		fmt.Fprintf(w, "seed:            %d\n", status.Index.Seed)
	}
	return nil
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + " ..."
}
