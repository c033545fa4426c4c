package cmd

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/vesperhq/vesper/internal/knowledge"
)

// captureStdout runs fn and returns what it wrote to stdout.
func captureStdout(t *testing.T, fn func() error) string {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w

	fnErr := fn()

	w.Close()
	os.Stdout = oldStdout

	if fnErr != nil {
		t.Fatalf("captured function failed: %v", fnErr)
	}

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// ============================================================================
// Command wiring
// ============================================================================

func TestRootCommand_Wiring(t *testing.T) {
	if !strings.HasPrefix(rootCmd.Use, "vesper") {
		t.Errorf("root Use = %q, want vesper prefix", rootCmd.Use)
	}
	if rootCmd.RunE == nil {
		t.Error("root command should launch the TUI itself")
	}

	subcommands := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		subcommands[c.Name()] = true
	}
	for _, want := range []string{"serve", "mcp", "index", "search", "status", "remove", "version"} {
		if !subcommands[want] {
			t.Errorf("missing subcommand %q (have %v)", want, subcommands)
		}
	}
}

func TestCommandFlags(t *testing.T) {
	if serveCmd.Flags().Lookup("addr") == nil {
		t.Error("serve should have an --addr flag")
	}
	if serveCmd.Flags().Lookup("dev") == nil {
		t.Error("serve should have a --dev flag")
	}
	for _, name := range []string{"max-results", "threshold", "no-expand"} {
		if searchCmd.Flags().Lookup(name) == nil {
			t.Errorf("search should have a --%s flag", name)
		}
	}
	for _, tc := range []struct {
		cmdName string
		flags   *pflag.FlagSet
	}{
		{"status", statusCmd.Flags()},
		{"remove", removeCmd.Flags()},
	} {
		f := tc.flags.Lookup("server")
		if f == nil {
			t.Errorf("%s should have a --server flag", tc.cmdName)
			continue
		}
		if f.DefValue != defaultServerURL {
			t.Errorf("%s --server default = %q, want %q", tc.cmdName, f.DefValue, defaultServerURL)
		}
	}
}

// ============================================================================
// version
// ============================================================================

func TestRunVersion_Output(t *testing.T) {
	oldVersion, oldBuildTime, oldCommit := Version, BuildTime, GitCommit
	Version, BuildTime, GitCommit = "1.2.3", "2026-02-01T10:00:00Z", "abc1234"
	defer func() { Version, BuildTime, GitCommit = oldVersion, oldBuildTime, oldCommit }()

	output := captureStdout(t, runVersion)

	for _, want := range []string{"Vesper 1.2.3", "Build Time: 2026-02-01T10:00:00Z", "Git Commit: abc1234"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q\nGot: %s", want, output)
		}
	}
}

// ============================================================================
// printSearchResults
// ============================================================================

func TestPrintSearchResults_NoResults(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printSearchResults(&buf, "ghost ships", &knowledge.SearchResponse{Query: "ghost ships"})

	if !strings.Contains(buf.String(), `No passages matched "ghost ships".`) {
		t.Errorf("output = %q", buf.String())
	}
}

func TestPrintSearchResults_Populated(t *testing.T) {
	t.Parallel()

	resp := &knowledge.SearchResponse{
		Query:    "harbor",
		Variants: []string{"harbor", "port facilities"},
		Results: []knowledge.SearchResult{
			{
				DocumentName: "Atlas",
				Kind:         knowledge.KindUploadedFile,
				Content:      "The harbor spans three piers.\nCargo moves through the east gate.",
				Similarity:   0.91,
			},
			{
				DocumentName: "Atlas",
				Kind:         knowledge.KindUploadedFile,
				Content:      "Night berthing requires a pilot.",
				Similarity:   0.58,
				IsGapFiller:  true,
			},
		},
		Candidates: 12,
		Elapsed:    12 * time.Millisecond,
	}

	var buf bytes.Buffer
	printSearchResults(&buf, "harbor", resp)
	output := buf.String()

	expected := []string{
		`2 passages for "harbor"`,
		"Searched as: harbor, port facilities",
		"1. Atlas [uploaded-file] similarity 0.91",
		"   The harbor spans three piers.",
		"   Cargo moves through the east gate.",
		"2. Atlas [uploaded-file] similarity 0.58 (adjacent context)",
		"12 candidates in 12ms",
	}
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q\nGot: %s", want, output)
		}
	}
}

func TestPrintSearchResults_SingleVariantOmitsSearchedAs(t *testing.T) {
	t.Parallel()

	resp := &knowledge.SearchResponse{
		Query:    "harbor",
		Variants: []string{"harbor"},
		Results: []knowledge.SearchResult{
			{DocumentName: "Atlas", Kind: knowledge.KindUploadedFile, Content: "x", Similarity: 0.9},
		},
	}

	var buf bytes.Buffer
	printSearchResults(&buf, "harbor", resp)

	if strings.Contains(buf.String(), "Searched as:") {
		t.Error("single-variant response should not print the expansion line")
	}
}

// ============================================================================
// status rendering
// ============================================================================

func TestPrintStatus(t *testing.T) {
	t.Parallel()

	stats := knowledge.Stats{Documents: 3, IndexedDocuments: 2, Vectors: 41, ActiveJobs: 1}
	list := documentList{
		Items: []documentSummary{
			{
				ID:     "atlas-ab12cd34",
				Name:   "atlas.md",
				Kind:   knowledge.KindUploadedFile,
				Status: knowledge.Status{State: knowledge.StateIndexed, VectorCount: 7},
			},
			{
				ID:     "depot-99ffeeaa",
				Name:   "depot.txt",
				Kind:   knowledge.KindUploadedFile,
				Status: knowledge.Status{State: knowledge.StateIndexing},
			},
		},
		Total: 2,
	}

	var buf bytes.Buffer
	printStatus(&buf, stats, list)
	output := buf.String()

	expected := []string{
		"Documents: 3 (2 indexed)  Vectors: 41  Active jobs: 1",
		"ID", "NAME", "KIND", "STATE", "VECTORS",
		"atlas-ab12cd34", "atlas.md", "indexed",
		"depot-99ffeeaa", "indexing",
	}
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q\nGot: %s", want, output)
		}
	}
}

func TestPrintStatus_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printStatus(&buf, knowledge.Stats{}, documentList{})

	output := buf.String()
	if !strings.Contains(output, "Documents: 0 (0 indexed)") {
		t.Errorf("output = %q", output)
	}
	if strings.Contains(output, "NAME") {
		t.Error("empty listing should not print a table header")
	}
}

func TestPrintDocumentStatus(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printDocumentStatus(&buf, knowledge.Status{
		DocumentID:  "atlas-ab12cd34",
		State:       knowledge.StateIndexed,
		VectorCount: 7,
		Generation:  3,
		IndexedAt:   time.Date(2026, 2, 1, 10, 30, 0, 0, time.UTC),
	})
	output := buf.String()

	for _, want := range []string{"Document: atlas-ab12cd34", "State:    indexed", "Vectors:  7", "generation 3", "2026-02-01 10:30:00"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q\nGot: %s", want, output)
		}
	}
}

func TestPrintDocumentStatus_NotIndexed(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printDocumentStatus(&buf, knowledge.Status{DocumentID: "ghost", State: knowledge.StateNotIndexed})
	output := buf.String()

	if !strings.Contains(output, "not-indexed") {
		t.Errorf("output = %q", output)
	}
	if strings.Contains(output, "Vectors") {
		t.Error("vector count is meaningless before indexing and should be omitted")
	}
}
