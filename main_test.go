package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgnsrekt/readaloud/internal/audio"
	"github.com/dgnsrekt/readaloud/internal/document"
	"github.com/klauspost/compress/zstd"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

func TestEscapeMarkdown(t *testing.T) {
	tests := map[string]string{
		"plain text":      "plain text",
		"*bold* and _it_": `\*bold\* and \_it\_`,
		"[link](x)":       `\[link\](x)`,
		"# not a heading": `\# not a heading`,
		`back\slash`:      `back\\slash`,
	}
	for in, want := range tests {
		if got := escapeMarkdown(in); got != want {
			t.Errorf("escapeMarkdown(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDocumentMarkdown(t *testing.T) {
	doc := document.Document{
		FileName:   "notes_v2.md",
		Paragraphs: []string{"First.", "Uses *stars*."},
	}

	got := documentMarkdown(doc)
	for _, want := range []string{`# notes\_v2.md`, "_2 paragraphs_", "1. First.", `2. Uses \*stars\*.`} {
		if !strings.Contains(got, want) {
			t.Errorf("markdown is missing %q:\n%s", want, got)
		}
	}
}

func TestPrintRendered(t *testing.T) {
	doc := document.Document{FileName: "a.txt", Paragraphs: []string{"Hello there."}}

	var b bytes.Buffer
	if err := printRendered(&b, doc, "notty", 80); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.String(), "Hello there.") {
		t.Errorf("rendered output is missing the paragraph:\n%s", b.String())
	}
}

func TestReadDocument(t *testing.T) {
	t.Run("stdin", func(t *testing.T) {
		doc, err := readDocument(strings.NewReader("One.\n\nTwo."), "-", "")
		if err != nil {
			t.Fatal(err)
		}
		var b bytes.Buffer
		if err := printPlain(&b, doc); err != nil {
			t.Fatal(err)
		}
		if b.String() != "One.\n\nTwo.\n" {
			t.Errorf("plain output = %q", b.String())
		}
	})

	t.Run("stdin markdown", func(t *testing.T) {
		doc, err := readDocument(strings.NewReader("# Title\n\nBody *text*."), "-", document.MIMEMarkdown)
		if err != nil {
			t.Fatal(err)
		}
		if len(doc.Paragraphs) != 2 || doc.Paragraphs[1] != "Body text." {
			t.Errorf("paragraphs = %q", doc.Paragraphs)
		}
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "a.txt")
		if err := os.WriteFile(path, []byte("Only one."), 0o600); err != nil {
			t.Fatal(err)
		}
		doc, err := readDocument(nil, path, "")
		if err != nil {
			t.Fatal(err)
		}
		if doc.Len() != 1 {
			t.Errorf("paragraphs = %d, want 1", doc.Len())
		}
	})

	t.Run("missing", func(t *testing.T) {
		if _, err := readDocument(nil, filepath.Join(t.TempDir(), "x.txt"), ""); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestExpandPath(t *testing.T) {
	home, err := homedir.Dir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err := expandPath("~/docs/a.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, "docs", "a.pdf"); got != want {
		t.Errorf("expandPath() = %q, want %q", got, want)
	}

	got, err = expandPath("relative.md")
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(got) {
		t.Errorf("expandPath() = %q, want an absolute path", got)
	}
}

func TestPlayAndWait(t *testing.T) {
	buf, err := audio.Decode([]byte{0, 0, 0, 0})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("finishes", func(t *testing.T) {
		sink := audio.NewMockSink()
		sink.AutoFinish = true
		if err := playAndWait(context.Background(), sink, buf); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("interrupted", func(t *testing.T) {
		sink := audio.NewMockSink()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := playAndWait(ctx, sink, buf); err != nil {
			t.Fatal(err)
		}
		if !sink.Last().IsHalted() {
			t.Error("expected the output to be halted")
		}
	})
}

func TestSayToFile(t *testing.T) {
	viper.Set("engine", "mock")
	viper.Set("mock.delay", "0s")
	t.Cleanup(func() {
		viper.Set("engine", "gemini")
		viper.Set("mock.delay", "300ms")
		sayOutput = ""
	})

	sayOutput = filepath.Join(t.TempDir(), "out.pcm")
	var b bytes.Buffer
	if err := say(context.Background(), "two words", &b); err != nil {
		t.Fatal(err)
	}

	pcm, err := os.ReadFile(sayOutput)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := audio.Decode(pcm); err != nil || len(pcm) == 0 {
		t.Errorf("wrote %d bytes of invalid audio: %v", len(pcm), err)
	}
	if !strings.Contains(b.String(), "Wrote") {
		t.Errorf("output = %q", b.String())
	}
}

func TestWriteAudioCompressed(t *testing.T) {
	pcm := bytes.Repeat([]byte{1, 0, 2, 0}, 1000)
	path := filepath.Join(t.TempDir(), "out.pcm.zst")
	if err := writeAudio(path, pcm); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) >= len(pcm) {
		t.Errorf("compressed size %d, want less than %d", len(data), len(pcm))
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer dec.Close()
	got, err := dec.DecodeAll(data, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, pcm) {
		t.Error("decompressed audio differs")
	}
}
