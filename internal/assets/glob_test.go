package assets

import "testing"

func TestMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"test-*", "test-v1.0.0.zip", true},
		{"test-*", "other-v1.0.0.zip", false},
		{"tool-*-linux-*.tar.gz", "tool-1.2.3-linux-amd64.tar.gz", true},
		{"tool-*-linux-*.tar.gz", "tool-1.2.3-linux-amd64.tar.gz.sha256", false},
		{"tool-?.zip", "tool-1.zip", true},
		{"tool-?.zip", "tool-10.zip", false},
		{"*", "", true},
		{"", "", true},
		{"", "x", false},
		{"tool.tar.gz", "toolxtar.gz", false},
		{"*linux*", "tool_linux_amd64", true},
		{"a*b*c", "abxbc", true},
		{"a*b*c", "acb", false},
		{"Tool-*", "tool-1", false},
	}
	for _, tc := range tests {
		if got := Match(tc.pattern, tc.name); got != tc.want {
			t.Fatalf("Match(%q, %q): got %v want %v", tc.pattern, tc.name, got, tc.want)
		}
	}
}

func TestMatchFold(t *testing.T) {
	t.Parallel()

	if !MatchFold("tool-*-Darwin-*", "tool-1.0.0-darwin-x86_64.tar.gz") {
		t.Fatal("expected case-insensitive match")
	}
}
