package header

import (
	"strings"
	"testing"
)

func TestHas(t *testing.T) {
	if !Has("---\nserial: a1b2c3d4\n---\n\nbody") {
		t.Error("expected header to be detected")
	}
	if Has("# Just a heading\n") {
		t.Error("plain document should have no header")
	}
}

func TestSplit_HeaderAndBody(t *testing.T) {
	content := "---\nserial: a1b2c3d4\nroot-url: ../\n---\n\n# Title\nBody text.\n"
	hdr, body, ok := Split(content)
	if !ok {
		t.Fatal("expected a header")
	}
	if hdr != "---\nserial: a1b2c3d4\nroot-url: ../\n---" {
		t.Errorf("header = %q", hdr)
	}
	if body != "# Title\nBody text.\n" {
		t.Errorf("body = %q", body)
	}
}

func TestSplit_Unterminated(t *testing.T) {
	content := "---\nserial: a1b2c3d4\nno closing marker\n"
	if _, _, ok := Split(content); ok {
		t.Error("unterminated header should be treated as absent")
	}
}

func TestSplit_NoHeader(t *testing.T) {
	content := "plain text\n"
	_, body, ok := Split(content)
	if ok {
		t.Error("expected no header")
	}
	if body != content {
		t.Errorf("body = %q, want full content", body)
	}
}

func TestSplit_MarkerOnly(t *testing.T) {
	// A bare marker with nothing after it must not panic.
	if _, _, ok := Split("---"); ok {
		t.Error("bare marker should not count as a header")
	}
}

func TestParseFields_TrimsAndDropsUnparseable(t *testing.T) {
	hdr := "---\nserial:  a1b2c3d4  \n  root-url : ../../\nnot a field line\n---"
	fields := ParseFields(hdr)
	if got := Serial(fields); got != "a1b2c3d4" {
		t.Errorf("serial = %q", got)
	}
	if v, _ := fields.Get(KeyRootURL); v != "../../" {
		t.Errorf("root-url = %q", v)
	}
	if fields.Len() != 2 {
		t.Errorf("len = %d, want 2", fields.Len())
	}
}

func TestBuild_OrderAndNoTrailingBlank(t *testing.T) {
	fields := NewFields()
	fields.Set("serial", "a1b2c3d4")
	fields.Set("root-url", "../")
	fields.Set("custom", "kept")
	hdr := Build(fields)
	want := "---\nserial: a1b2c3d4\nroot-url: ../\ncustom: kept\n---"
	if hdr != want {
		t.Errorf("built header = %q, want %q", hdr, want)
	}
	if strings.HasSuffix(hdr, "\n") {
		t.Error("header must not end with a newline")
	}
}

func TestFieldRoundTrip(t *testing.T) {
	hdr := "---\nserial: a1b2c3d4\nroot-url: ../\ntitle: My Note\ntags: a, b\n---"
	once := ParseFields(hdr)
	twice := ParseFields(Build(once))
	if once.Len() != twice.Len() {
		t.Fatalf("field count changed: %d vs %d", once.Len(), twice.Len())
	}
	for p1, p2 := once.Oldest(), twice.Oldest(); p1 != nil; p1, p2 = p1.Next(), p2.Next() {
		if p1.Key != p2.Key || p1.Value != p2.Value {
			t.Errorf("field drifted: %s=%q vs %s=%q", p1.Key, p1.Value, p2.Key, p2.Value)
		}
	}
	// Order reproduced, so the exact text round-trips too.
	if Build(twice) != hdr {
		t.Errorf("text round trip: %q", Build(twice))
	}
}

func TestAssetsURL(t *testing.T) {
	cases := []struct {
		rootURL  string
		serial   string
		shardLen int
		want     string
	}{
		{"", "ab12cd34", 1, ".assets/a/ab12cd34"},
		{"../", "ab12cd34", 1, "../.assets/a/ab12cd34"},
		{"../../", "ab12cd34", 2, "../../.assets/ab/ab12cd34"},
	}
	for _, c := range cases {
		if got := AssetsURL(c.rootURL, c.serial, c.shardLen); got != c.want {
			t.Errorf("AssetsURL(%q, %q, %d) = %q, want %q", c.rootURL, c.serial, c.shardLen, got, c.want)
		}
	}
}
