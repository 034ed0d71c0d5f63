package directive

import (
	"regexp"
	"strings"
)

// Style names produced by the classifier
const (
	StyleInterjection  = "interjection_soft"
	StyleApology       = "apology"
	StyleGratitude     = "gratitude"
	StyleCelebration   = "celebration"
	StyleComfort       = "comfort"
	StyleTeasing       = "teasing"
	StyleRomantic      = "romantic"
	StyleWhisper       = "whisper"
	StyleSerious       = "serious"
	StyleAuthority     = "authority"
	StyleUrgency       = "urgency"
	StyleCurious       = "curious"
	StyleStorytelling  = "storytelling"
	StyleInstructional = "instructional"
	StyleHumor         = "humor"
	StyleCalm          = "calm"
)

// maxStyles caps how many styles a single utterance can carry
const maxStyles = 3

type styleRule struct {
	name    string
	pattern *regexp.Regexp
}

// styleRules is evaluated in order against the lowercased text; order
// determines style precedence when the cap trims the list.
var styleRules = []styleRule{
	{StyleInterjection, regexp.MustCompile(`\b(aww|oops|hehe|hmm|oh|ah|wow|whoa|yum|uh|ooh|phew|huh|yikes|welp)\b`)},
	{StyleApology, regexp.MustCompile(`\b(sorry|apolog\w*|my bad|forgive me)\b`)},
	{StyleGratitude, regexp.MustCompile(`\b(thanks|thank you|appreciate|grateful)\b`)},
	{StyleCelebration, regexp.MustCompile(`\b(congrats|congratulations|awesome|amazing|yay|woohoo)\b`)},
	{StyleComfort, regexp.MustCompile(`it'?s (ok|okay|alright)|you('ll| will) be (ok|okay|fine)|don'?t worry|there there`)},
	{StyleTeasing, regexp.MustCompile(`\b(hehe|haha|lol|just kidding|gotcha)\b`)},
	{StyleRomantic, regexp.MustCompile(`\b(sweetheart|darling|dear|love you|miss you)\b`)},
	{StyleWhisper, regexp.MustCompile(`\b(whisper|quietly|hush|shh)\b`)},
	{StyleAuthority, regexp.MustCompile(`\b(must|need to|do it now|right now|listen up)\b`)},
	{StyleUrgency, regexp.MustCompile(`\b(urgent|hurry|immediately|asap|emergency|quick)\b`)},
	{StyleCurious, regexp.MustCompile(`\b(why|how come|wonder|curious)\b|really\?|\?$`)},
	{StyleStorytelling, regexp.MustCompile(`\b(once upon a time|suddenly|meanwhile|long ago|back then)\b`)},
	{StyleInstructional, regexp.MustCompile(`\b(step|first|next|then|finally|instructions?|make sure)\b`)},
	{StyleHumor, regexp.MustCompile(`\b(joke|funny|hilarious|lmao)\b`)},
}

// InferStyles classifies the communicative style(s) of cleaned text.
// Ordered lexical rules run first, then punctuation heuristics append up to
// two more styles (urgency on stacked exclamations, curiosity on any
// question mark). Falls back to calm, capped at three styles.
func InferStyles(text string) []string {
	var styles []string
	lowered := strings.ToLower(text)

	for _, rule := range styleRules {
		if rule.pattern.MatchString(lowered) {
			styles = append(styles, rule.name)
		}
	}

	exclamations := strings.Count(text, "!") + strings.Count(text, "！")
	questions := strings.Count(text, "?") + strings.Count(text, "？")
	if exclamations >= 2 && !contains(styles, StyleUrgency) && !contains(styles, StyleInterjection) {
		styles = append(styles, StyleUrgency)
	}
	if questions >= 1 && !contains(styles, StyleCurious) {
		styles = append(styles, StyleCurious)
	}
	if len(styles) == 0 {
		styles = append(styles, StyleCalm)
	}

	if len(styles) > maxStyles {
		styles = styles[:maxStyles]
	}
	return styles
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
