package document

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document wraps a parsed YAML tree. Keeping the raw yaml.Node around
// (instead of decoding straight into structs) preserves comments, key
// order, and scalar style, so a document can be re-encoded byte-faithfully
// apart from formatting normalization.
type Document struct {
	root *yaml.Node
}

func Parse(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	if root.Kind == 0 {
		return nil, fmt.Errorf("document is empty")
	}

	doc := &Document{root: &root}
	if err := doc.checkDuplicateKeys(); err != nil {
		return nil, err
	}

	return doc, nil
}

func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return doc, nil
}

func (d *Document) Root() *yaml.Node {
	return d.root
}

// mapping returns the top-level mapping node, unwrapping the document node.
func (d *Document) mapping() *yaml.Node {
	node := d.root
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	return node
}

// Lookup resolves a dotted path ("model.optim.sched.name") to its value
// node. Sequence elements are addressed by a bare index segment
// ("ranks.0").
func (d *Document) Lookup(path string) (*yaml.Node, bool) {
	node := d.mapping()

	for _, seg := range strings.Split(path, ".") {
		switch node.Kind {
		case yaml.MappingNode:
			var next *yaml.Node
			for i := 0; i+1 < len(node.Content); i += 2 {
				if node.Content[i].Value == seg {
					next = node.Content[i+1]
					break
				}
			}
			if next == nil {
				return nil, false
			}
			node = next
		case yaml.SequenceNode:
			idx := -1
			if _, err := fmt.Sscanf(seg, "%d", &idx); err != nil || idx < 0 || idx >= len(node.Content) {
				return nil, false
			}
			node = node.Content[idx]
		default:
			return nil, false
		}
	}

	return node, true
}

// Scalar returns the decoded Go value at path: int, float64, bool, string,
// or nil for YAML null.
func (d *Document) Scalar(path string) (interface{}, bool) {
	node, ok := d.Lookup(path)
	if !ok || node.Kind != yaml.ScalarNode {
		return nil, false
	}

	var v interface{}
	if err := node.Decode(&v); err != nil {
		return nil, false
	}
	return v, true
}

// Set replaces the scalar at path with the YAML encoding of value.
func (d *Document) Set(path string, value interface{}) error {
	node, ok := d.Lookup(path)
	if !ok {
		return fmt.Errorf("key not found: %s", path)
	}
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("key %s is not a scalar", path)
	}

	var encoded yaml.Node
	if err := encoded.Encode(value); err != nil {
		return fmt.Errorf("failed to encode value for %s: %w", path, err)
	}

	head := node.HeadComment
	line := node.LineComment
	*node = encoded
	node.HeadComment = head
	node.LineComment = line

	return nil
}

func (d *Document) Encode() ([]byte, error) {
	var sb strings.Builder
	enc := yaml.NewEncoder(&sb)
	enc.SetIndent(2)

	if err := enc.Encode(d.mapping()); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}

	return []byte(sb.String()), nil
}

// EncodeNode serializes a single node, e.g. the result of a Lookup.
func EncodeNode(node *yaml.Node) ([]byte, error) {
	var sb strings.Builder
	enc := yaml.NewEncoder(&sb)
	enc.SetIndent(2)

	if err := enc.Encode(node); err != nil {
		return nil, fmt.Errorf("failed to encode node: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode node: %w", err)
	}

	return []byte(sb.String()), nil
}

// Tree decodes the whole document into plain Go values (map[string]interface{},
// []interface{}, scalars). Comments and ordering are dropped, which makes the
// result suitable for structural comparison.
func (d *Document) Tree() (interface{}, error) {
	var tree interface{}
	if err := d.mapping().Decode(&tree); err != nil {
		return nil, fmt.Errorf("failed to decode document tree: %w", err)
	}
	return tree, nil
}

// Decode unmarshals the document into out, rejecting keys that out does not
// declare.
func (d *Document) Decode(out interface{}) error {
	data, err := d.Encode()
	if err != nil {
		return err
	}

	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	return nil
}

// Walk visits every scalar leaf with its dotted path.
func (d *Document) Walk(fn func(path string, node *yaml.Node) error) error {
	return walk("", d.mapping(), fn)
}

func walk(prefix string, node *yaml.Node, fn func(string, *yaml.Node) error) error {
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			path := node.Content[i].Value
			if prefix != "" {
				path = prefix + "." + path
			}
			if err := walk(path, node.Content[i+1], fn); err != nil {
				return err
			}
		}
	case yaml.SequenceNode:
		for i, item := range node.Content {
			if err := walk(fmt.Sprintf("%s.%d", prefix, i), item, fn); err != nil {
				return err
			}
		}
	case yaml.ScalarNode:
		return fn(prefix, node)
	}
	return nil
}

func (d *Document) checkDuplicateKeys() error {
	return checkDuplicates("", d.mapping())
}

func checkDuplicates(prefix string, node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		seen := make(map[string]bool)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			path := key
			if prefix != "" {
				path = prefix + "." + key
			}
			if seen[key] {
				return fmt.Errorf("duplicate key %s at line %d", path, node.Content[i].Line)
			}
			seen[key] = true

			if err := checkDuplicates(path, node.Content[i+1]); err != nil {
				return err
			}
		}
	case yaml.SequenceNode:
		for i, item := range node.Content {
			if err := checkDuplicates(fmt.Sprintf("%s.%d", prefix, i), item); err != nil {
				return err
			}
		}
	}
	return nil
}
