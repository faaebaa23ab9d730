package interp

import (
	"strings"
	"testing"

	"github.com/samogod/trainconf/pkg/document"

	"github.com/google/go-cmp/cmp"
)

func parse(t *testing.T, input string) *document.Document {
	t.Helper()
	doc, err := document.Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return doc
}

func TestResolveReference(t *testing.T) {
	doc := parse(t, "a: 4\nb: ${a}\n")

	if err := NewRegistry().Resolve(doc); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	got, _ := doc.Scalar("b")
	if got != 4 {
		t.Errorf("b = %v (%T), want int 4", got, got)
	}
}

func TestResolveNestedReference(t *testing.T) {
	doc := parse(t, "model:\n  tp: 4\n  pp: 1\nderived: ${model.tp}\n")

	if err := NewRegistry().Resolve(doc); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	got, _ := doc.Scalar("derived")
	if got != 4 {
		t.Errorf("derived = %v, want 4", got)
	}
}

func TestResolveMultiply(t *testing.T) {
	doc := parse(t, "tp: 4\npp: 2\nmp: ${multiply:${tp},${pp}}\n")

	if err := NewRegistry().Resolve(doc); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	got, _ := doc.Scalar("mp")
	if got != 8 {
		t.Errorf("mp = %v (%T), want int 8", got, got)
	}
}

func TestResolveChainedReferences(t *testing.T) {
	doc := parse(t, "a: 2\nb: ${a}\nc: ${multiply:${b},3}\n")

	if err := NewRegistry().Resolve(doc); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	got, _ := doc.Scalar("c")
	if got != 6 {
		t.Errorf("c = %v, want 6", got)
	}
}

func TestResolveEmbeddedPlaceholder(t *testing.T) {
	doc := parse(t, "size: 7\nname: llama-${size}b\n")

	if err := NewRegistry().Resolve(doc); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	got, _ := doc.Scalar("name")
	if got != "llama-7b" {
		t.Errorf("name = %v, want llama-7b", got)
	}
}

func TestResolveFloorDiv(t *testing.T) {
	doc := parse(t, "hidden: 4096\nheads: 32\nkv: ${floor_div:${hidden},${heads}}\n")

	if err := NewRegistry().Resolve(doc); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	got, _ := doc.Scalar("kv")
	if got != 128 {
		t.Errorf("kv = %v, want 128", got)
	}
}

func TestResolveFloorDivByZero(t *testing.T) {
	doc := parse(t, "a: 1\nb: ${floor_div:${a},0}\n")

	if err := NewRegistry().Resolve(doc); err == nil {
		t.Fatalf("expected division by zero error")
	}
}

func TestResolveMissingReference(t *testing.T) {
	doc := parse(t, "b: ${nope.missing}\n")

	err := NewRegistry().Resolve(doc)
	if err == nil {
		t.Fatalf("expected unresolvable reference error")
	}
	if !strings.Contains(err.Error(), "nope.missing") {
		t.Errorf("error %q does not name the missing key", err)
	}
}

func TestResolveUnknownResolver(t *testing.T) {
	doc := parse(t, "a: 1\nb: ${exp:${a}}\n")

	err := NewRegistry().Resolve(doc)
	if err == nil {
		t.Fatalf("expected unknown resolver error")
	}
	if !strings.Contains(err.Error(), "exp") {
		t.Errorf("error %q does not name the resolver", err)
	}
}

func TestResolveCycle(t *testing.T) {
	doc := parse(t, "a: ${b}\nb: ${a}\n")

	err := NewRegistry().Resolve(doc)
	if err == nil {
		t.Fatalf("expected cycle error")
	}
	if !strings.Contains(err.Error(), "cycle") {
		t.Errorf("error %q does not mention the cycle", err)
	}
}

func TestResolveSelfCycle(t *testing.T) {
	doc := parse(t, "a: ${multiply:${a},2}\n")

	if err := NewRegistry().Resolve(doc); err == nil {
		t.Fatalf("expected cycle error for self reference")
	}
}

func TestResolveUnterminatedPlaceholder(t *testing.T) {
	doc := parse(t, "a: '${multiply:1,2'\n")

	if err := NewRegistry().Resolve(doc); err == nil {
		t.Fatalf("expected unterminated placeholder error")
	}
}

func TestResolveNonNumericResolverArg(t *testing.T) {
	doc := parse(t, "a: gpu\nb: ${multiply:${a},2}\n")

	if err := NewRegistry().Resolve(doc); err == nil {
		t.Fatalf("expected non-numeric argument error")
	}
}

func TestResolveKeepsComments(t *testing.T) {
	doc := parse(t, "a: 4\nb: ${a} # derived\n")

	if err := NewRegistry().Resolve(doc); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	out, err := doc.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !strings.Contains(string(out), "b: 4 # derived") {
		t.Errorf("comment lost during resolution:\n%s", out)
	}
}

func TestCustomResolver(t *testing.T) {
	doc := parse(t, "a: 10\nb: ${add:${a},5}\n")

	reg := NewRegistry()
	reg.Register("add", func(args []interface{}) (interface{}, error) {
		sum := 0
		for _, a := range args {
			sum += a.(int)
		}
		return sum, nil
	})

	if err := reg.Resolve(doc); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	got, _ := doc.Scalar("b")
	if got != 15 {
		t.Errorf("b = %v, want 15", got)
	}
}

func TestReferences(t *testing.T) {
	doc := parse(t, `model:
  tp: 4
  pp: 1
mp: ${multiply:${model.tp},${model.pp}}
alias: ${model.tp}
`)

	refs, resolvers, err := References(doc)
	if err != nil {
		t.Fatalf("References failed: %v", err)
	}

	wantRefs := []string{"model.pp", "model.tp"}
	if diff := cmp.Diff(wantRefs, refs); diff != "" {
		t.Errorf("refs mismatch (-want +got):\n%s", diff)
	}
	wantResolvers := []string{"multiply"}
	if diff := cmp.Diff(wantResolvers, resolvers); diff != "" {
		t.Errorf("resolvers mismatch (-want +got):\n%s", diff)
	}
}

func TestMultiplyFloatPromotion(t *testing.T) {
	doc := parse(t, "a: 0.5\nb: ${multiply:${a},4}\n")

	if err := NewRegistry().Resolve(doc); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	got, _ := doc.Scalar("b")
	if got != 2.0 {
		t.Errorf("b = %v (%T), want float 2", got, got)
	}
}
