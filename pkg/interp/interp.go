// Package interp resolves cross-field placeholders inside a configuration
// document. A scalar may reference another key (`${model.hidden_size}`) or
// call a named resolver over arguments (`${multiply:${a},${b}}`). Resolution
// is a single pass over the parsed tree, run after parsing and before the
// document is decoded into typed structs.
package interp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samogod/trainconf/pkg/document"
	"gopkg.in/yaml.v3"
)

var DebugLog func(string, ...interface{})

// Resolver computes a value from already-resolved arguments.
type Resolver func(args []interface{}) (interface{}, error)

type Registry struct {
	resolvers map[string]Resolver
}

// NewRegistry returns a registry with the built-in resolvers: multiply and
// floor_div.
func NewRegistry() *Registry {
	r := &Registry{resolvers: make(map[string]Resolver)}
	r.Register("multiply", multiply)
	r.Register("floor_div", floorDiv)
	return r
}

func (r *Registry) Register(name string, fn Resolver) {
	r.resolvers[name] = fn
}

// Resolve substitutes every placeholder in doc in place. Unresolvable
// references, unknown resolver names, non-numeric resolver arguments, and
// reference cycles are reported as errors.
func (r *Registry) Resolve(doc *document.Document) error {
	state := &resolveState{
		doc:       doc,
		registry:  r,
		resolving: make(map[string]bool),
		resolved:  make(map[string]bool),
	}

	var paths []string
	err := doc.Walk(func(path string, node *yaml.Node) error {
		if strings.Contains(node.Value, "${") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, path := range paths {
		if err := state.resolvePath(path); err != nil {
			return err
		}
	}

	return nil
}

type resolveState struct {
	doc       *document.Document
	registry  *Registry
	resolving map[string]bool
	resolved  map[string]bool
}

func (s *resolveState) resolvePath(path string) error {
	if s.resolved[path] {
		return nil
	}
	if s.resolving[path] {
		return fmt.Errorf("interpolation cycle detected at %s", path)
	}

	node, ok := s.doc.Lookup(path)
	if !ok {
		return fmt.Errorf("unresolvable reference %q", path)
	}
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("reference %q is not a scalar", path)
	}

	if !strings.Contains(node.Value, "${") {
		s.resolved[path] = true
		return nil
	}

	s.resolving[path] = true
	defer delete(s.resolving, path)

	value, err := s.resolveString(node.Value)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	if DebugLog != nil {
		DebugLog("resolved %s -> %v", path, value)
	}

	if err := setScalar(node, value); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	s.resolved[path] = true
	return nil
}

// resolveString evaluates all placeholders in s. A scalar that is exactly one
// placeholder keeps the resolved value's type; placeholders embedded in a
// larger string are spliced in as text.
func (s *resolveState) resolveString(raw string) (interface{}, error) {
	spans, err := scanPlaceholders(raw)
	if err != nil {
		return nil, err
	}
	if len(spans) == 0 {
		return raw, nil
	}

	if len(spans) == 1 && spans[0].start == 0 && spans[0].end == len(raw) {
		return s.evaluate(spans[0].inner(raw))
	}

	var sb strings.Builder
	last := 0
	for _, span := range spans {
		sb.WriteString(raw[last:span.start])
		value, err := s.evaluate(span.inner(raw))
		if err != nil {
			return nil, err
		}
		sb.WriteString(fmt.Sprint(value))
		last = span.end
	}
	sb.WriteString(raw[last:])

	return sb.String(), nil
}

// evaluate handles the inside of one placeholder: either "resolver:args" or a
// dotted key reference.
func (s *resolveState) evaluate(inner string) (interface{}, error) {
	name, argStr, isCall := splitCall(inner)
	if !isCall {
		ref := strings.TrimSpace(inner)
		if err := s.resolvePath(ref); err != nil {
			return nil, err
		}
		value, ok := s.doc.Scalar(ref)
		if !ok {
			return nil, fmt.Errorf("unresolvable reference %q", ref)
		}
		return value, nil
	}

	fn, ok := s.registry.resolvers[name]
	if !ok {
		return nil, fmt.Errorf("unknown resolver %q", name)
	}

	var args []interface{}
	for _, arg := range splitArgs(argStr) {
		value, err := s.resolveString(strings.TrimSpace(arg))
		if err != nil {
			return nil, err
		}
		if str, ok := value.(string); ok {
			value = parseScalar(str)
		}
		args = append(args, value)
	}

	return fn(args)
}

type span struct {
	start, end int // raw[start:end] spans "${...}" inclusive
}

func (sp span) inner(raw string) string {
	return raw[sp.start+2 : sp.end-1]
}

// scanPlaceholders finds top-level "${...}" spans, tracking nesting so that
// `${multiply:${a},${b}}` is a single span.
func scanPlaceholders(raw string) ([]span, error) {
	var spans []span
	for i := 0; i < len(raw); {
		if i+1 < len(raw) && raw[i] == '$' && raw[i+1] == '{' {
			depth := 0
			j := i
			for ; j < len(raw); j++ {
				if j+1 < len(raw) && raw[j] == '$' && raw[j+1] == '{' {
					depth++
					j++
				} else if raw[j] == '}' {
					depth--
					if depth == 0 {
						break
					}
				}
			}
			if depth != 0 {
				return nil, fmt.Errorf("unterminated placeholder in %q", raw)
			}
			spans = append(spans, span{start: i, end: j + 1})
			i = j + 1
			continue
		}
		i++
	}
	return spans, nil
}

// splitCall separates "name:args" from a plain reference. A call name is a
// leading identifier followed by a colon; dotted references never contain
// colons.
func splitCall(inner string) (name, args string, ok bool) {
	colon := strings.Index(inner, ":")
	if colon < 0 {
		return "", "", false
	}
	name = strings.TrimSpace(inner[:colon])
	if name == "" || strings.ContainsAny(name, ".${} ") {
		return "", "", false
	}
	return name, inner[colon+1:], true
}

// splitArgs splits on commas outside nested placeholders.
func splitArgs(raw string) []string {
	var args []string
	depth := 0
	last := 0
	for i := 0; i < len(raw); i++ {
		switch {
		case i+1 < len(raw) && raw[i] == '$' && raw[i+1] == '{':
			depth++
			i++
		case raw[i] == '}' && depth > 0:
			depth--
		case raw[i] == ',' && depth == 0:
			args = append(args, raw[last:i])
			last = i + 1
		}
	}
	args = append(args, raw[last:])
	return args
}

func setScalar(node *yaml.Node, value interface{}) error {
	var encoded yaml.Node
	if err := encoded.Encode(value); err != nil {
		return fmt.Errorf("failed to encode resolved value: %w", err)
	}

	head := node.HeadComment
	line := node.LineComment
	*node = encoded
	node.HeadComment = head
	node.LineComment = line
	return nil
}

// parseScalar interprets a literal resolver argument with YAML scalar rules,
// so "4" becomes an int and "0.5" a float.
func parseScalar(s string) interface{} {
	var v interface{}
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	if v == nil {
		return s
	}
	return v
}

// References reports the unique key references and resolver names used by
// placeholders anywhere in doc, both sorted.
func References(doc *document.Document) (refs []string, resolvers []string, err error) {
	refSet := make(map[string]bool)
	resolverSet := make(map[string]bool)

	err = doc.Walk(func(path string, node *yaml.Node) error {
		spans, err := scanPlaceholders(node.Value)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		for _, sp := range spans {
			collectRefs(sp.inner(node.Value), refSet, resolverSet)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	for ref := range refSet {
		refs = append(refs, ref)
	}
	for name := range resolverSet {
		resolvers = append(resolvers, name)
	}
	sort.Strings(refs)
	sort.Strings(resolvers)
	return refs, resolvers, nil
}

func collectRefs(inner string, refs, resolvers map[string]bool) {
	name, argStr, isCall := splitCall(inner)
	if !isCall {
		refs[strings.TrimSpace(inner)] = true
		return
	}

	resolvers[name] = true
	for _, arg := range splitArgs(argStr) {
		arg = strings.TrimSpace(arg)
		spans, err := scanPlaceholders(arg)
		if err != nil {
			continue
		}
		for _, sp := range spans {
			collectRefs(sp.inner(arg), refs, resolvers)
		}
	}
}
