package directive

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultBaseInstruct is the persona instruction used when no override is
// configured.
const DefaultBaseInstruct = "Max expressiveness: extremely wide pitch range, dramatic high-low swings, fast pace (1.5x), clear articulation, amplified emotional contrast."

// anchorSuffix is appended to anchor directives so parallel sub-chunks of
// one utterance keep a uniform performance.
const anchorSuffix = " Keep one consistent core tone color, speaking persona, and emotional baseline across all chunks of this same sentence."

var emotionInstructions = map[string]string{
	"joy":      "Extreme joy. Highest pitch register, massive upward melodic leaps every syllable. Bright piercing head-voice, fast lively pace, pitch rockets on exclamations. Bright laughter-filled exhales between phrases, bubbly giggly breath.",
	"happy":    "Extreme joy. Highest pitch register, massive upward melodic leaps every syllable. Bright piercing head-voice, fast lively pace, pitch rockets on exclamations. Bright laughter-filled exhales between phrases, bubbly giggly breath.",
	"surprise": "Explosive shock, extremely fast. Pitch violently spikes to ceiling then crashes to floor then spikes again. Maximum speed, stuttering, gasping, breathless rapid-fire, wildly unpredictable pitch. Sharp sudden gasp at start.",
	"sadness":  "Deeply broken trembling voice. Pitch sinks to absolute lowest, barely audible. Sharp upward spike when voice cracks then collapses. Painfully slow, long pauses, hollow and shattered. Deep heavy trembling sighs, shaky exhales, sniffling.",
	"sad":      "Deeply broken trembling voice. Pitch sinks to absolute lowest, barely audible. Sharp upward spike when voice cracks then collapses. Painfully slow, long pauses, hollow and shattered. Deep heavy trembling sighs, shaky exhales, sniffling.",
	"anger":    "Explosive fury. Pitch slams to threatening low growl then violently erupts upward on stressed words. Aggressive pitch explosions on key words. Fast forceful commanding, zero hesitation. Harsh forceful nasal exhales, short explosive nose bursts.",
	"fear":     "Extreme panic. Pitch shoots to shrill piercing high trembling, drops to tight whisper, spikes back in horror. Wild pitch instability, screaming highs to terrified lows. Frantic irregular bursts, stuttering, gasping. Rapid shallow hyperventilating breaths.",
	"disgust":  "Deep visceral revulsion. Pitch drops to lowest guttural register, each word descends lower. Brief upward sneer on disgust words then plunges back. Deliberately slow, cold contemptuous pauses. Short held breaths, sharp disgusted exhales.",
	"neutral":  "Steady even pace with clear pitch movement between phrases. Gentle rises on questions, soft falls on statements. Calm factual natural melody. Nearly silent regular breathing.",
	"smirk":    "Maximum smugness. Pitch drops low and slow on setup then slides up with exaggerated sarcastic emphasis on punchline. Drawn-out teasing melodic curves, knowing condescension. Short dismissive nasal snorts, scoffing exhales.",
}

var styleInstructions = map[string]string{
	StyleInterjection:  "When interjections or onomatopoeia appear, slightly slow the local pace and insert a brief micro-pause of around 0.2 seconds right after them before continuing.",
	StyleComfort:       "Use a gentle, comforting tone with warm softness and steady reassuring pacing.",
	StyleApology:       "Use a sincere apologetic tone with softened stress and careful pacing.",
	StyleCelebration:   "Use festive excitement with lively rhythm, brighter pitch movement, and crisp energy.",
	StyleGratitude:     "Use heartfelt gratitude with warm resonance and tender emphasis.",
	StyleTeasing:       "Use playful teasing with light sarcasm, rhythmic bounce, and smiling delivery.",
	StyleRomantic:      "Use an intimate affectionate tone, soft breath, and smooth flowing cadence.",
	StyleWhisper:       "Use a whisper-like intimate delivery with reduced intensity and close-mic warmth.",
	StyleSerious:       "Use a serious focused tone with lower pitch center, stable tempo, and firm clarity.",
	StyleAuthority:     "Use assertive authority with strong stress on key words and decisive rhythm.",
	StyleUrgency:       "Use urgent pacing with faster tempo, tighter phrase breaks, and heightened emphasis.",
	StyleCurious:       "Use curious inquisitive intonation with upward contours and engaged pacing.",
	StyleStorytelling:  "Use narrative storytelling cadence with expressive pauses and vivid scene coloring.",
	StyleInstructional: "Use clear instructional delivery with measured pace and precise articulation.",
	StyleHumor:         "Use light comedic timing with playful rhythm and expressive punchlines.",
	StyleCalm:          "Use calm grounded delivery with smooth transitions and stable breath.",
}

var emotionBreathOverrides = map[string]string{
	"joy":      "Bright laughter-filled exhales, bubbly giggly breath.",
	"happy":    "Bright laughter-filled exhales, bubbly giggly breath.",
	"anger":    "Harsh forceful nasal exhales, short explosive nose bursts.",
	"disgust":  "Short held breaths, sharp disgusted exhales, reluctant inhales.",
	"fear":     "Rapid shallow hyperventilating, fast trembling breath cycles.",
	"sadness":  "Deep heavy trembling sighs, shaky exhales, sniffling.",
	"sad":      "Deep heavy trembling sighs, shaky exhales, sniffling.",
	"surprise": "Loud sharp sudden gasp, dramatic involuntary inhale.",
	"smirk":    "Short dismissive nasal snorts, scoffing exhales.",
	"neutral":  "Nearly silent regular breathing.",
}

var breathFillerRe = regexp.MustCompile(`(?i)(^|\s)(hmmm?|uhhh?|ahhh?|ummm?|ohhh?|well|mmm)([,.!?]|\s|$)`)

// Options controls a single compilation pass
type Options struct {
	// AllowInterjection enables the contextual interjection injector;
	// disabled for per-chunk compilations of a multi-chunk utterance.
	AllowInterjection bool
	// ForcedStyles bypasses classification, used to share one anchor style
	// decision across chunks.
	ForcedStyles []string
	// DirectiveOverride replaces directive assembly entirely (anchor reuse);
	// text transforms still run.
	DirectiveOverride string
}

// Result is one compiled utterance or chunk
type Result struct {
	Text      string
	Directive string
	Styles    []string
	Emotions  []string
	Prosody   Prosody
}

// Anchor is the directive shared by all chunks of one utterance
type Anchor struct {
	Directive string
	Styles    []string
}

// Compiler assembles natural-language synthesis directives from utterance
// text. One compiler instance is shared across all utterances of a process
// so interjection recency and cooldown state span the conversation.
type Compiler struct {
	baseInstruct string
	intensity    float64
	injector     *Injector
	logger       zerolog.Logger
}

// NewCompiler creates a directive compiler. An empty baseInstruct selects
// the default persona instruction; intensity below 1.0 is clamped.
func NewCompiler(baseInstruct string, intensity float64, seed int64, logger zerolog.Logger) *Compiler {
	base := strings.TrimSpace(baseInstruct)
	if base == "" {
		base = DefaultBaseInstruct
	}
	if intensity < 1.0 {
		intensity = 1.0
	}
	return &Compiler{
		baseInstruct: base,
		intensity:    intensity,
		injector:     NewInjector(seed),
		logger:       logger,
	}
}

// Compile normalizes one utterance or chunk and derives its directive
func (c *Compiler) Compile(text string, opts Options) Result {
	cleaned, prosody := ExtractProsody(text)
	cleaned, emotions := ExtractEmotions(cleaned)

	styles := opts.ForcedStyles
	if len(styles) == 0 {
		styles = InferStyles(cleaned)
	}

	if opts.AllowInterjection {
		cleaned = c.injector.MaybeInsert(cleaned, styles, emotions, prosody)
	}
	cleaned = InjectMicroPauses(cleaned)
	cleaned = ElongateFillers(cleaned)
	cleaned = InjectFillerPauses(cleaned)
	cleaned = NormalizeBoundaries(cleaned)
	if prosody.Elong >= 1 && !strings.HasSuffix(cleaned, "...") {
		cleaned += "..."
	}

	dir := opts.DirectiveOverride
	if dir == "" {
		dir = c.buildDirective(cleaned, emotions, prosody, styles)
	}

	c.logger.Debug().
		Strs("styles", styles).
		Strs("emotions", emotions).
		Str("prosody", prosody.String()).
		Msg("Compiled synthesis directive")

	return Result{
		Text:      cleaned,
		Directive: dir,
		Styles:    styles,
		Emotions:  emotions,
		Prosody:   prosody,
	}
}

// CompileAnchor derives one directive from the full utterance text, shared
// by every chunk so parallel synthesis sounds like one performance.
func (c *Compiler) CompileAnchor(fullText string) Anchor {
	cleaned, prosody := ExtractProsody(fullText)
	cleaned, emotions := ExtractEmotions(cleaned)
	styles := InferStyles(cleaned)
	dir := c.buildDirective(cleaned, emotions, prosody, styles) + anchorSuffix
	return Anchor{Directive: dir, Styles: styles}
}

// Reset clears the interjection recency and cooldown state
func (c *Compiler) Reset() {
	c.injector.Reset()
}

// buildDirective concatenates, in order: base persona, intensity, prosody
// cues, punctuation pauses, breath pattern, per-style fragments, and
// per-emotion fragments, de-duplicating identical fragments.
func (c *Compiler) buildDirective(cleaned string, emotions []string, prosody Prosody, styles []string) string {
	parts := []string{c.baseInstruct, c.intensityDirective()}

	if p := prosodyInstruction(prosody); p != "" {
		parts = append(parts, p)
	}
	if p := pauseInstruction(cleaned); p != "" {
		parts = append(parts, p)
	}
	if p := breathInstruction(cleaned, prosody, emotions); p != "" {
		parts = append(parts, p)
	}
	seen := make(map[string]bool)
	for _, style := range styles {
		if instr, ok := styleInstructions[style]; ok && !seen[instr] {
			seen[instr] = true
			parts = append(parts, c.amplify(instr))
		}
	}
	for _, emotion := range emotions {
		if instr, ok := emotionInstructions[emotion]; ok && !seen[instr] {
			seen[instr] = true
			parts = append(parts, c.amplify(
				fmt.Sprintf("Secondary cue from expression tag '%s': %s", emotion, instr)))
		}
	}

	return strings.Join(parts, " ")
}

func (c *Compiler) intensityDirective() string {
	switch {
	case c.intensity >= 2.0:
		return "EXTREME intensity: maximize every emotion. Most dramatic pitch arcs, wildly exaggerated rhythm, theatrical emotional coloring, no subtlety."
	case c.intensity >= 1.6:
		return "Intensity mode HIGH: make emotion clearly audible with high contrast, wider pitch range, and strong rhythmic variation."
	case c.intensity >= 1.3:
		return "Intensity mode MEDIUM-HIGH: keep emotion prominent with noticeable pitch and rhythm variation."
	default:
		return "Intensity mode NORMAL: maintain expressive but controlled emotional coloring."
	}
}

// amplify appends an intensifying clause at high configured intensity.
// Micro-pause timing instructions are left untouched.
func (c *Compiler) amplify(instruction string) string {
	if strings.Contains(instruction, "0.2 seconds") {
		return instruction
	}
	switch {
	case c.intensity >= 1.8:
		return instruction + " Exaggerate to absolute extreme, reject any flat delivery, perform theatrically."
	case c.intensity >= 1.4:
		return instruction + " Keep emotional emphasis clearly audible."
	default:
		return instruction
	}
}

func prosodyInstruction(p Prosody) string {
	var parts []string

	switch {
	case p.Elong >= 3:
		parts = append(parts, "Detected strong elongation cue: stretch the sentence-final syllable clearly and keep the vowel tail warm and smooth.")
	case p.Elong == 2:
		parts = append(parts, "Detected elongation cue: gently lengthen the final syllable for a friendly drawn-out tone.")
	case p.Elong == 1:
		parts = append(parts, "Detected mild elongation cue: slightly sustain the final syllable without sounding exaggerated.")
	}

	if p.Question >= 2 {
		parts = append(parts, "Emphatic question: pitch must sharply rise on the last 2-3 syllables with a dramatic upward jump, like exclaiming a surprised question. Make the rising tone impossible to miss.")
	} else if p.Question == 1 {
		parts = append(parts, "Question detected: clearly raise pitch on the final syllable with a strong upward intonation lift, like asking with genuine curiosity.")
	}

	if p.Exclaim >= 2 {
		parts = append(parts, "Emphatic exclamation: pitch must spike sharply upward on the last 2-3 syllables with an explosive rising burst, like shouting with intense emotion.")
	} else if p.Exclaim == 1 {
		parts = append(parts, "Exclamation detected: raise pitch on the final syllable with a strong upward punch, delivering clear excited or emphatic rising intonation.")
	}

	if p.Linebreak >= 2 {
		parts = append(parts, "Detected paragraph-like line breaks: after each line break boundary, pause naturally for about 0.20 seconds before continuing.")
	} else if p.Linebreak == 1 {
		parts = append(parts, "Detected line break boundary: insert a natural pause of about 0.20 seconds at that boundary.")
	}

	return strings.Join(parts, " ")
}

func pauseInstruction(cleaned string) string {
	commas := strings.Count(cleaned, ",") + strings.Count(cleaned, "，")
	breaks := strings.Count(cleaned, ".") + strings.Count(cleaned, "!") + strings.Count(cleaned, "?") +
		strings.Count(cleaned, "。") + strings.Count(cleaned, "！") + strings.Count(cleaned, "？")

	switch {
	case commas > 0 && breaks > 0:
		return "Detected comma and sentence boundaries: place a natural pause of about 0.2 seconds after each comma, and a clearer transition pause of about 0.3 seconds at each sentence boundary."
	case commas > 0:
		return "Detected comma phrase break: place a natural pause of about 0.2 seconds at each comma boundary."
	case breaks > 0:
		return "Detected sentence boundaries: place a clear transition pause of about 0.3 seconds at each sentence boundary."
	default:
		return ""
	}
}

func breathInstruction(cleaned string, prosody Prosody, emotions []string) string {
	for _, emotion := range emotions {
		if override, ok := emotionBreathOverrides[emotion]; ok {
			return override
		}
	}

	const alwaysBreath = "Always add a very soft inhale-like breath at sentence start and a soft exhale-like release at sentence end. Keep breaths subtle and natural, not exaggerated."
	const fillerClause = " When filler words like 'hmmm' or 'ahhh' appear, draw them out slowly with a warm sustained hum, then place a soft micro-pause of about 0.10 to 0.16 seconds."

	hasFiller := breathFillerRe.MatchString(cleaned)
	boundaries := strings.Count(cleaned, ",") + strings.Count(cleaned, ".") +
		strings.Count(cleaned, "!") + strings.Count(cleaned, "?") +
		strings.Count(cleaned, "，") + strings.Count(cleaned, "。") +
		strings.Count(cleaned, "！") + strings.Count(cleaned, "？")

	if boundaries <= 0 {
		if hasFiller {
			return alwaysBreath + " When filler words like 'hmmm' or 'ahhh' appear, draw them out slowly and softly with a warm sustained hum. Add a very brief breathy micro-pause of about 0.10 to 0.16 seconds after them."
		}
		return alwaysBreath + " Use gentle phrase transitions with occasional subtle breathy release between clauses."
	}

	if prosody.Question >= 1 {
		out := alwaysBreath + " At clause boundaries, add a tiny human-like breathy pause of about 0.12 to 0.20 seconds. Question ending: sharply raise pitch on final syllables with strong upward lift."
		if hasFiller {
			out += fillerClause
		}
		return out
	}

	out := alwaysBreath + " At clause boundaries, add tiny human-like breathy pauses of about 0.12 to 0.20 seconds, while keeping sentence flow smooth and conversational."
	if hasFiller {
		out += fillerClause
	}
	return out
}
