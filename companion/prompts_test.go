package companion

import (
	"strings"
	"testing"
)

func TestComposeEmotionInstructions(t *testing.T) {
	t.Parallel()

	daily := ComposeEmotionInstructions("", false)
	if !strings.HasPrefix(daily, defaultEmotionPromptHeader) {
		t.Fatalf("empty header must fall back to the default")
	}
	for _, e := range Emotions {
		if !strings.Contains(daily, "- "+string(e)+":") {
			t.Fatalf("missing label definition for %s", e)
		}
	}
	if !strings.Contains(daily, "PET-LOSS LANGUAGE") || strings.Contains(daily, "griefStage") {
		t.Fatalf("daily instructions have the wrong sections")
	}

	memorial := ComposeEmotionInstructions("Custom persona.", true)
	if !strings.HasPrefix(memorial, "Custom persona.") || !strings.Contains(memorial, emotionPromptRequiredTail) {
		t.Fatalf("custom header must keep the required tail")
	}
	for _, s := range GriefStages {
		if !strings.Contains(memorial, "- "+string(s)+":") {
			t.Fatalf("missing grief stage %s", s)
		}
	}
	if !strings.HasSuffix(memorial, emotionPromptFooter) {
		t.Fatalf("footer must come last")
	}
}

func TestComposeMemoryInstructions(t *testing.T) {
	t.Parallel()

	got := ComposeMemoryInstructions("", "초코")
	for _, want := range []string{`"초코"`, `"08:00"`, `"12:00"`, `"18:00"`, `"21:00"`, "empty array", `{"memories": [...]}`} {
		if !strings.Contains(got, want) {
			t.Fatalf("instructions missing %q", want)
		}
	}
	for _, mt := range MemoryTypes {
		if !strings.Contains(got, "- "+string(mt)+":") {
			t.Fatalf("missing memory type %s", mt)
		}
	}
	if !strings.Contains(ComposeMemoryInstructions("", " "), `"the pet"`) {
		t.Fatalf("blank pet name must fall back")
	}
}
