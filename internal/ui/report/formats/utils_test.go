package formats

import (
	"strings"
	"testing"
)

func TestRelPath(t *testing.T) {
	cases := []struct{ root, path, want string }{
		{"/project", "/project/src/a.ts", "src/a.ts"},
		{"/project", "/elsewhere/a.ts", "/elsewhere/a.ts"},
		{"", "/project/a.ts", "/project/a.ts"},
		{"/project", "src/a.ts", "src/a.ts"},
	}
	for _, tc := range cases {
		if got := relPath(tc.root, tc.path); got != tc.want {
			t.Errorf("relPath(%q, %q) = %q, want %q", tc.root, tc.path, got, tc.want)
		}
	}
}

func TestMakeIDs(t *testing.T) {
	ids := makeIDs([]string{"a.ts", "a-ts", "9lives.js", "a.ts"})
	if ids["a.ts"] != "a_ts" || ids["a-ts"] != "a_ts_2" {
		t.Fatalf("unexpected ids: %v", ids)
	}
	if ids["9lives.js"] != "n_9lives_js" {
		t.Fatalf("digit-leading id = %q", ids["9lives.js"])
	}
}

func TestCycleDiagram(t *testing.T) {
	diagram := CycleDiagram(sampleResult())
	for _, want := range []string{
		"flowchart LR\n",
		"  a_ts[\"a.ts\"]\n",
		"  a_ts --> b_ts\n",
		"  b_ts --> a_ts\n",
		"  class a_ts,b_ts cycle\n",
	} {
		if !strings.Contains(diagram, want) {
			t.Errorf("diagram missing %q\n%s", want, diagram)
		}
	}
	result := sampleResult()
	result.Findings = result.Findings[:1]
	if CycleDiagram(result) != "" {
		t.Fatal("expected empty diagram without cycles")
	}
}
