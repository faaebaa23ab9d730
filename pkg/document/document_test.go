package document

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

const sampleYAML = `name: test_run

trainer:
  devices: 8 # per node
  num_nodes: 4
  precision: bf16
  max_epochs: null

model:
  num_layers: 32
  dropout: 0.1
  tokenizer:
    library: huggingface
  ranks: [0, 1]
`

func TestParseAndLookup(t *testing.T) {
	doc, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	node, ok := doc.Lookup("trainer.devices")
	if !ok {
		t.Fatalf("expected trainer.devices to exist")
	}
	if node.Value != "8" {
		t.Errorf("trainer.devices = %q, want 8", node.Value)
	}

	if _, ok := doc.Lookup("trainer.missing"); ok {
		t.Errorf("expected trainer.missing to be absent")
	}
	if _, ok := doc.Lookup("model.tokenizer.library.deeper"); ok {
		t.Errorf("expected lookup through a scalar to fail")
	}
}

func TestLookupSequenceIndex(t *testing.T) {
	doc, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	node, ok := doc.Lookup("model.ranks.1")
	if !ok {
		t.Fatalf("expected model.ranks.1 to exist")
	}
	if node.Value != "1" {
		t.Errorf("model.ranks.1 = %q, want 1", node.Value)
	}
	if _, ok := doc.Lookup("model.ranks.7"); ok {
		t.Errorf("expected out-of-range index to fail")
	}
}

func TestScalarTypes(t *testing.T) {
	doc, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	cases := []struct {
		path string
		want interface{}
	}{
		{"trainer.devices", 8},
		{"model.dropout", 0.1},
		{"trainer.precision", "bf16"},
		{"trainer.max_epochs", nil},
	}
	for _, tc := range cases {
		got, ok := doc.Scalar(tc.path)
		if !ok {
			t.Fatalf("Scalar(%s) not found", tc.path)
		}
		if got != tc.want {
			t.Errorf("Scalar(%s) = %v (%T), want %v (%T)", tc.path, got, got, tc.want, tc.want)
		}
	}

	if _, ok := doc.Scalar("model.tokenizer"); ok {
		t.Errorf("expected Scalar on a mapping to fail")
	}
}

func TestDuplicateKeysRejected(t *testing.T) {
	cases := map[string]string{
		"top level": "a: 1\nb: 2\na: 3\n",
		"nested":    "model:\n  num_layers: 32\n  num_layers: 16\n",
	}
	for name, input := range cases {
		if _, err := Parse([]byte(input)); err == nil {
			t.Errorf("%s: expected duplicate key error", name)
		} else if !strings.Contains(err.Error(), "duplicate") {
			t.Errorf("%s: error %q does not mention the duplicate", name, err)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	doc, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	out, err := doc.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	doc2, err := Parse(out)
	if err != nil {
		t.Fatalf("re-Parse failed: %v", err)
	}

	tree1, err := doc.Tree()
	if err != nil {
		t.Fatalf("Tree failed: %v", err)
	}
	tree2, err := doc2.Tree()
	if err != nil {
		t.Fatalf("Tree failed after round trip: %v", err)
	}
	if diff := cmp.Diff(tree1, tree2); diff != "" {
		t.Errorf("round trip changed the tree (-before +after):\n%s", diff)
	}

	if !strings.Contains(string(out), "# per node") {
		t.Errorf("round trip dropped the line comment:\n%s", out)
	}
}

func TestSetPreservesComment(t *testing.T) {
	doc, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if err := doc.Set("trainer.devices", 16); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, _ := doc.Scalar("trainer.devices")
	if got != 16 {
		t.Errorf("trainer.devices = %v, want 16", got)
	}

	out, err := doc.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !strings.Contains(string(out), "devices: 16 # per node") {
		t.Errorf("Set dropped the line comment:\n%s", out)
	}

	if err := doc.Set("trainer.nope", 1); err == nil {
		t.Errorf("expected Set on a missing key to fail")
	}
	if err := doc.Set("model.tokenizer", 1); err == nil {
		t.Errorf("expected Set on a mapping to fail")
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	doc, err := Parse([]byte("known: 1\nsurprise: 2\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	var out struct {
		Known int `yaml:"known"`
	}
	if err := doc.Decode(&out); err == nil {
		t.Fatalf("expected decode to reject the unknown field")
	}
}

func TestWalkVisitsScalarLeaves(t *testing.T) {
	doc, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	seen := map[string]string{}
	err = doc.Walk(func(path string, node *yaml.Node) error {
		seen[path] = node.Value
		return nil
	})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	for _, path := range []string{"name", "trainer.devices", "model.tokenizer.library", "model.ranks.0"} {
		if _, ok := seen[path]; !ok {
			t.Errorf("Walk did not visit %s", path)
		}
	}
	if seen["model.ranks.1"] != "1" {
		t.Errorf("model.ranks.1 = %q, want 1", seen["model.ranks.1"])
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got, _ := doc.Scalar("name"); got != "test_run" {
		t.Errorf("name = %v, want test_run", got)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Errorf("expected Load of a missing file to fail")
	}
}
