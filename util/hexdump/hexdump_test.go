package hexdump_test

import (
	"strings"
	"testing"

	"github.com/blockfs/go-blockfs/util/hexdump"
)

func TestDump(t *testing.T) {
	out := hexdump.Dump([]byte("hello, world! \x00\x01 more bytes"), 16)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 rows, got %d:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "00000000:") {
		t.Errorf("first row missing offset: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "00000010:") {
		t.Errorf("second row missing offset: %q", lines[1])
	}
	if !strings.Contains(lines[0], "68 65 6c 6c 6f") {
		t.Errorf("hex bytes missing from row: %q", lines[0])
	}
	// non-printable bytes render as dots in the ASCII column
	if !strings.HasSuffix(lines[0], "hello, world! ..") {
		t.Errorf("ASCII column wrong: %q", lines[0])
	}
}

func TestDumpEmpty(t *testing.T) {
	if out := hexdump.Dump(nil, 16); out != "" {
		t.Errorf("dump of empty input is %q, expected empty", out)
	}
}

func TestDumpDefaultWidth(t *testing.T) {
	out := hexdump.Dump(make([]byte, 20), 0)
	if lines := strings.Count(out, "\n"); lines != 2 {
		t.Errorf("expected 2 rows with the default width, got %d:\n%s", lines, out)
	}
}
