package fileutils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDecodeModelJSON(t *testing.T) {
	t.Parallel()

	type obj struct {
		Emotion string `json:"emotion"`
	}
	cases := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "plain", in: `{"emotion":"sad"}`, want: "sad"},
		{name: "fenced", in: "```json\n{\"emotion\":\"happy\"}\n```", want: "happy"},
		{name: "prose", in: `Sure! {"emotion":"lonely"} hope that helps`, want: "lonely"},
		{name: "empty", in: "   ", wantErr: true},
		{name: "no object", in: "not json", wantErr: true},
		{name: "broken", in: `{"emotion":`, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got obj
			err := DecodeModelJSON(tc.in, &got)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.Emotion != tc.want {
				t.Fatalf("emotion=%q want %q", got.Emotion, tc.want)
			}
		})
	}
}

func TestDecodeModelJSONArray(t *testing.T) {
	t.Parallel()

	var got []map[string]any
	if err := DecodeModelJSONArray("here you go:\n[{\"title\":\"walk\"}]\n", &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0]["title"] != "walk" {
		t.Fatalf("got=%v", got)
	}

	got = nil
	if err := DecodeModelJSONArray(`{"title":"walk"}`, &got); err == nil {
		t.Fatalf("expected error for object input")
	}
}

func TestFlattenLine(t *testing.T) {
	t.Parallel()

	if got := FlattenLine("  a\nb\r\n\tc  "); got != "a b c" {
		t.Fatalf("got=%q", got)
	}
	if got := FlattenLine(""); got != "" {
		t.Fatalf("got=%q", got)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := Truncate("산책하기좋은날", 3); got != "산책하…" {
		t.Fatalf("got=%q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("got=%q", got)
	}
	if got := Truncate(" keep ", 0); got != "keep" {
		t.Fatalf("got=%q", got)
	}
}

func TestReadTrimmedFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := filepath.Join(dir, "prompt.txt")
	if err := os.WriteFile(p, []byte("\n hello world\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadTrimmedFile(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != "hello world" {
		t.Fatalf("got=%q", got)
	}
	if !FileExists(p) {
		t.Fatalf("FileExists=false")
	}

	empty := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(empty, []byte("  \n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadTrimmedFile(empty); err == nil {
		t.Fatalf("expected error for empty file")
	}
	if _, err := ReadTrimmedFile(filepath.Join(dir, "missing")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
