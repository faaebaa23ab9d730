package update

import "testing"

func TestCompareVersions(t *testing.T) {
	cases := []struct {
		current string
		latest  string
		want    bool
	}{
		{"1.0.0", "1.0.1", true},
		{"1.0.0", "1.1.0", true},
		{"1.0.0", "2.0.0", true},
		{"1.0.0", "1.0.0", false},
		{"1.2.0", "1.1.9", false},
		{"v1.0.0", "v1.0.1", true},
		{"1.0", "1.0.1", true},
	}

	for _, tc := range cases {
		if got := CompareVersions(tc.current, tc.latest); got != tc.want {
			t.Errorf("CompareVersions(%q, %q) = %v, want %v", tc.current, tc.latest, got, tc.want)
		}
	}
}

func TestGetBinaryName(t *testing.T) {
	name := GetBinaryName()
	if name == "" || name == "trainconf__" {
		t.Errorf("unexpected binary name %q", name)
	}
}
