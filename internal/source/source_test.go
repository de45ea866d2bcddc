package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTotalSizeSumsRegularFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	if err := os.WriteFile(a, make([]byte, 10), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, make([]byte, 20), 0o644); err != nil {
		t.Fatal(err)
	}

	total, kept, warnings := TotalSize([]string{a, b})
	if total != 30 {
		t.Errorf("total = %d, want 30", total)
	}
	if len(kept) != 2 {
		t.Errorf("kept = %v, want 2 entries", kept)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
}

func TestTotalSizeDropsInaccessibleInput(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good")
	missing := filepath.Join(dir, "does-not-exist")
	if err := os.WriteFile(good, make([]byte, 5), 0o644); err != nil {
		t.Fatal(err)
	}

	total, kept, warnings := TotalSize([]string{good, missing})
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(kept) != 1 || kept[0] != good {
		t.Errorf("kept = %v, want [%s]", kept, good)
	}
	if len(warnings) != 1 {
		t.Errorf("warnings = %v, want 1 entry", warnings)
	}
}

func TestTotalSizePreservesOrder(t *testing.T) {
	dir := t.TempDir()
	paths := make([]string, 5)
	for i := range paths {
		p := filepath.Join(dir, string(rune('a'+i)))
		if err := os.WriteFile(p, make([]byte, i+1), 0o644); err != nil {
			t.Fatal(err)
		}
		paths[i] = p
	}

	_, kept, _ := TotalSize(paths)
	for i, p := range kept {
		if p != paths[i] {
			t.Errorf("kept[%d] = %s, want %s (order not preserved)", i, p, paths[i])
		}
	}
}

func TestOpenNextEndOfList(t *testing.T) {
	_, done, err := OpenNext([]string{"-"}, 1, -1)
	if !done || err != nil {
		t.Errorf("OpenNext past end: done=%v err=%v", done, err)
	}
}

func TestOpenNextOpensRegularFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "f")
	if err := os.WriteFile(p, []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	fd, done, err := OpenNext([]string{p}, 0, -1)
	if err != nil || done {
		t.Fatalf("OpenNext(%s) = fd=%d done=%v err=%v", p, fd, done, err)
	}
	if fd <= 0 {
		t.Errorf("fd = %d, want positive descriptor", fd)
	}
}
