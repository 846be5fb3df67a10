package common

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cvcraft/internal/errors"
	"cvcraft/internal/resume"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDocuments(t *testing.T) {
	dir := t.TempDir()
	jsonFile := writeFile(t, dir, "a.json", `{"basics":{"fullName":"Ada"},"skills":["Go"]}`)
	yamlFile := writeFile(t, dir, "b.yaml", "basics:\n  fullName: Grace\n")
	textFile := writeFile(t, dir, "c.txt", "plain text")

	fp := NewFileProcessor(errors.NewNopLogger(), resume.DecodeOptions{})

	docs, err := fp.LoadDocuments(jsonFile, yamlFile)
	if err != nil {
		t.Fatalf("LoadDocuments() error = %v", err)
	}
	if len(docs) != 2 || docs[0].Basics.FullName != "Ada" || docs[1].Basics.FullName != "Grace" {
		t.Errorf("unexpected documents: %+v", docs)
	}

	if _, err := fp.LoadDocuments(textFile); errors.CodeOf(err) != errors.ErrCodeInvalidFormat {
		t.Errorf("expected %s for a .txt file, got %v", errors.ErrCodeInvalidFormat, err)
	}
	if _, err := fp.LoadDocuments(filepath.Join(dir, "missing.json")); errors.CodeOf(err) != "INVALID_INPUT_FILE" {
		t.Errorf("expected INVALID_INPUT_FILE for a missing file, got %v", err)
	}
}

func TestRunDocumentCommandWritesFile(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "resume.json", `{"basics":{"fullName":"Ada"}}`)
	out := filepath.Join(dir, "out", "names.json")

	var logged []string
	err := RunDocumentCommand(context.Background(), errors.NewNopLogger(),
		CommandConfig{OutputFile: out, OutputFormat: "json"},
		[]string{in},
		func(_ context.Context, files []string, docs []*resume.Document) ([]string, error) {
			return []string{docs[0].Basics.FullName}, nil
		},
		func(files []string, _ CommandConfig) { logged = files },
	)
	if err != nil {
		t.Fatalf("RunDocumentCommand() error = %v", err)
	}
	if len(logged) != 1 || logged[0] != in {
		t.Errorf("logDetails saw %v", logged)
	}

	content, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), `"Ada"`) {
		t.Errorf("output file missing result: %s", content)
	}
}

func TestOutputHandlerStdout(t *testing.T) {
	var buf bytes.Buffer
	oh := NewOutputHandler(errors.NewNopLogger()).WithWriter(&buf)

	if err := oh.HandleOutput(map[string]int{"score": 88}, CommandConfig{OutputFormat: "json"}); err != nil {
		t.Fatalf("HandleOutput() error = %v", err)
	}
	if !strings.Contains(buf.String(), `"score": 88`) {
		t.Errorf("unexpected output %q", buf.String())
	}

	err := oh.HandleOutput(map[string]int{}, CommandConfig{OutputFormat: "xml"})
	if errors.CodeOf(err) != errors.ErrCodeInvalidFormat {
		t.Errorf("expected %s, got %v", errors.ErrCodeInvalidFormat, err)
	}
}
