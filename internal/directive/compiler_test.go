package directive

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newTestCompiler(intensity float64) *Compiler {
	return NewCompiler("", intensity, 1, zerolog.Nop())
}

func TestCompile_DirectiveOrdering(t *testing.T) {
	c := newTestCompiler(1.8)

	res := c.Compile("thank you for the help<<prosody:question:1>>", Options{})

	dir := res.Directive
	baseIdx := strings.Index(dir, DefaultBaseInstruct)
	intensityIdx := strings.Index(dir, "Intensity mode HIGH")
	questionIdx := strings.Index(dir, "Question detected")
	styleIdx := strings.Index(dir, "heartfelt gratitude")

	if baseIdx != 0 {
		t.Errorf("Expected base instruct first, directive: %q", dir)
	}
	for name, idx := range map[string]int{
		"intensity": intensityIdx, "question": questionIdx, "style": styleIdx,
	} {
		if idx < 0 {
			t.Errorf("Directive missing %s fragment: %q", name, dir)
		}
	}
	if !(baseIdx < intensityIdx && intensityIdx < questionIdx && questionIdx < styleIdx) {
		t.Errorf("Directive fragments out of order: base=%d intensity=%d question=%d style=%d",
			baseIdx, intensityIdx, questionIdx, styleIdx)
	}
}

func TestCompile_ExclamationPitchRise(t *testing.T) {
	c := newTestCompiler(1.8)

	res := c.Compile("Hello!<<prosody:exclaim:1>>", Options{})

	if !strings.Contains(res.Directive, "Exclamation detected: raise pitch") {
		t.Errorf("Expected exclamation pitch-rise instruction, got %q", res.Directive)
	}
	if res.Text != "Hello!" {
		t.Errorf("Expected marker stripped, got %q", res.Text)
	}
}

func TestCompile_IntensityLevels(t *testing.T) {
	cases := []struct {
		intensity float64
		want      string
	}{
		{2.0, "EXTREME intensity"},
		{1.6, "Intensity mode HIGH"},
		{1.3, "Intensity mode MEDIUM-HIGH"},
		{1.0, "Intensity mode NORMAL"},
	}
	for _, tc := range cases {
		c := newTestCompiler(tc.intensity)
		res := c.Compile("some plain text.", Options{})
		if !strings.Contains(res.Directive, tc.want) {
			t.Errorf("Intensity %.1f: expected %q in directive", tc.intensity, tc.want)
		}
	}
}

func TestCompile_EmotionBreathOverride(t *testing.T) {
	c := newTestCompiler(1.8)

	res := c.Compile("I can't believe it. <<emo:sadness>>", Options{})

	if !strings.Contains(res.Directive, "Deep heavy trembling sighs") {
		t.Errorf("Expected sadness breath override, got %q", res.Directive)
	}
	if strings.Contains(res.Directive, "Always add a very soft inhale-like breath") {
		t.Errorf("Generic breath instruction should be replaced by the emotion override")
	}
}

func TestCompile_EmotionFragmentsDeduplicated(t *testing.T) {
	c := newTestCompiler(1.0)

	// joy and happy share the same instruction text
	res := c.Compile("we won. <<emo:joy>> <<emo:happy>>", Options{})

	if n := strings.Count(res.Directive, "Extreme joy."); n != 1 {
		t.Errorf("Expected joy fragment exactly once, found %d times", n)
	}
}

func TestCompile_AmplificationAtHighIntensity(t *testing.T) {
	high := newTestCompiler(1.8)
	res := high.Compile("thank you.", Options{})
	if !strings.Contains(res.Directive, "Exaggerate to absolute extreme") {
		t.Errorf("Expected amplification clause at intensity 1.8")
	}

	low := newTestCompiler(1.0)
	res = low.Compile("thank you.", Options{})
	if strings.Contains(res.Directive, "Exaggerate to absolute extreme") {
		t.Errorf("Did not expect amplification clause at intensity 1.0")
	}
}

func TestCompile_MicroPauseFragmentNeverAmplified(t *testing.T) {
	c := newTestCompiler(2.0)

	res := c.Compile("wow look at that", Options{})

	frag := styleInstructions[StyleInterjection]
	idx := strings.Index(res.Directive, frag)
	if idx < 0 {
		t.Fatalf("Expected interjection style fragment, got %q", res.Directive)
	}
	after := res.Directive[idx+len(frag):]
	if strings.HasPrefix(after, " Exaggerate") {
		t.Errorf("Timing fragment must not gain an amplification clause")
	}
}

func TestCompile_ElongationAppendsEllipsis(t *testing.T) {
	c := newTestCompiler(1.8)

	res := c.Compile("see you later<<prosody:elong:2>>", Options{})
	if !strings.HasSuffix(res.Text, "...") {
		t.Errorf("Expected trailing ellipsis, got %q", res.Text)
	}

	res = c.Compile("see you later...<<prosody:elong:2>>", Options{})
	if strings.HasSuffix(res.Text, "......") {
		t.Errorf("Ellipsis must not double up, got %q", res.Text)
	}
}

func TestCompile_DirectiveOverrideSkipsAssembly(t *testing.T) {
	c := newTestCompiler(1.8)

	res := c.Compile("thank you.", Options{DirectiveOverride: "shared anchor directive"})
	if res.Directive != "shared anchor directive" {
		t.Errorf("Expected override used verbatim, got %q", res.Directive)
	}
}

func TestCompile_ForcedStylesBypassClassification(t *testing.T) {
	c := newTestCompiler(1.8)

	res := c.Compile("thank you.", Options{ForcedStyles: []string{StyleWhisper}})
	if len(res.Styles) != 1 || res.Styles[0] != StyleWhisper {
		t.Errorf("Expected forced styles, got %v", res.Styles)
	}
	if !strings.Contains(res.Directive, "whisper-like intimate delivery") {
		t.Errorf("Expected whisper fragment, got %q", res.Directive)
	}
}

func TestCompileAnchor(t *testing.T) {
	c := newTestCompiler(1.8)

	anchor := c.CompileAnchor("First sentence is thankful, thank you. Second one asks a question?")

	if !strings.HasSuffix(anchor.Directive, anchorSuffix) {
		t.Errorf("Expected anchor consistency suffix, got %q", anchor.Directive)
	}
	if len(anchor.Styles) == 0 {
		t.Error("Expected anchor styles from full text")
	}
}
