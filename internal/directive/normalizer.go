// Package directive derives synthesis instructions and lexical
// embellishments from raw utterance text: inline marker extraction, style
// classification, contextual interjection insertion, and final directive
// assembly.
package directive

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Prosody holds the intensity of each inline prosody cue extracted from an
// utterance. When a cue repeats, the maximum intensity wins.
type Prosody struct {
	Elong     int
	Question  int
	Linebreak int
	Exclaim   int
}

var (
	prosodyMarkerRe = regexp.MustCompile(`\s*<<prosody:(elong|question|linebreak|exclaim):(\d+)>>\s*`)
	emotionMarkerRe = regexp.MustCompile(`\s*<<emo:([A-Za-z_][A-Za-z0-9_]*)>>\s*`)
	whitespaceRe    = regexp.MustCompile(`\s+`)

	speakableStripRe = regexp.MustCompile(`[\s.,!?;:'"` + "`" + `…~\-—，。！？、（）「」『』]+`)

	lineBreakSepRe    = regexp.MustCompile(`([.!?])\s*//+\s*`)
	bareSepRe         = regexp.MustCompile(`\s*//+\s*`)
	sentenceSpacingRe = regexp.MustCompile(`([.!?])([^\s.!?])`)
	commaSpacingRe    = regexp.MustCompile(`(,)([^\s])`)
)

// ExtractProsody strips inline <<prosody:KIND:N>> markers from text and
// returns the cleaned text plus the aggregated cue intensities.
func ExtractProsody(text string) (string, Prosody) {
	var p Prosody
	for _, m := range prosodyMarkerRe.FindAllStringSubmatch(text, -1) {
		value, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		switch m[1] {
		case "elong":
			p.Elong = max(p.Elong, value)
		case "question":
			p.Question = max(p.Question, value)
		case "linebreak":
			p.Linebreak = max(p.Linebreak, value)
		case "exclaim":
			p.Exclaim = max(p.Exclaim, value)
		}
	}
	cleaned := prosodyMarkerRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(cleaned, " ")), p
}

// ExtractEmotions strips inline <<emo:NAME>> markers from text and returns
// the cleaned text plus the lowercased emotion names in order.
func ExtractEmotions(text string) (string, []string) {
	var emotions []string
	for _, m := range emotionMarkerRe.FindAllStringSubmatch(text, -1) {
		emotions = append(emotions, strings.ToLower(m[1]))
	}
	cleaned := emotionMarkerRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(cleaned, " ")), emotions
}

// IsSpeakable reports whether text contains anything beyond whitespace and
// common sentence punctuation. Unspeakable utterances still occupy a
// sequence slot but are rendered as silent payloads.
func IsSpeakable(text string) bool {
	return len(speakableStripRe.ReplaceAllString(text, "")) > 0
}

// NormalizeBoundaries tidies punctuation spacing: `//` separators become
// sentence breaks, and sentence/comma punctuation gains a following space.
// Runs of consecutive punctuation (ellipses, "?!") are left intact.
func NormalizeBoundaries(text string) string {
	normalized := lineBreakSepRe.ReplaceAllString(text, "$1 ")
	normalized = bareSepRe.ReplaceAllString(normalized, ". ")
	normalized = sentenceSpacingRe.ReplaceAllString(normalized, "$1 $2")
	normalized = commaSpacingRe.ReplaceAllString(normalized, "$1 $2")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(normalized, " "))
}

const interjectionTokens = `aww|oops|hehe|haha|hmm|oh no|oh|ah|wow|whoa|yum|uh|ooh|phew|huh|yikes|eek|ugh|ew|yay|woohoo|welp|pfft|shh|mmm`

var (
	interjectionTokenRe = regexp.MustCompile(`(?i)\b(` + interjectionTokens + `)(\s+)`)

	// Tokens strong enough to earn an ellipsis pause instead of a comma
	strongInterjections = map[string]bool{
		"wow":   true,
		"whoa":  true,
		"yikes": true,
		"eek":   true,
		"huh":   true,
	}

	fillerTokenRe = regexp.MustCompile(`(?i)\b(hmmm|hmm|well|uhhh|uh|ohhh|oh|ahhh|ah|ummm|um|mmm)([,.!?]?)(\s+)`)
)

// InjectMicroPauses inserts a short pause marker after interjection tokens
// that run straight into the next word: an ellipsis after strong tokens, a
// comma otherwise.
func InjectMicroPauses(text string) string {
	return insertPauses(text, interjectionTokenRe, func(token string) string {
		if strongInterjections[strings.ToLower(token)] {
			return "..."
		}
		return ","
	})
}

// InjectFillerPauses adds a comma pause after unpunctuated filler tokens
func InjectFillerPauses(text string) string {
	var b strings.Builder
	last := 0
	for _, m := range fillerTokenRe.FindAllStringSubmatchIndex(text, -1) {
		punct := text[m[4]:m[5]]
		spaceEnd := m[7]
		if punct != "" || spaceEnd >= len(text) || isPauseBoundary(text[spaceEnd]) {
			continue
		}
		b.WriteString(text[last:m[3]])
		b.WriteString(",")
		b.WriteString(text[m[3]:spaceEnd])
		last = spaceEnd
	}
	b.WriteString(text[last:])
	return b.String()
}

// fillerElongations maps short one-syllable fillers to drawn-out forms so
// the backend renders them slowly.
var fillerElongations = []struct {
	long    string
	punctRe *regexp.Regexp
	bareRe  *regexp.Regexp
}{
	{"hmmm", regexp.MustCompile(`(?i)\bhmm\b[,.]\s*`), regexp.MustCompile(`(?i)\bhmm\b`)},
	{"ummm", regexp.MustCompile(`(?i)\bum\b[,.]\s*`), regexp.MustCompile(`(?i)\bum\b`)},
	{"uhhh", regexp.MustCompile(`(?i)\buh\b[,.]\s*`), regexp.MustCompile(`(?i)\buh\b`)},
	{"ahhh", regexp.MustCompile(`(?i)\bah\b[,.]\s*`), regexp.MustCompile(`(?i)\bah\b`)},
}

// ElongateFillers converts short fillers to physically elongated forms for
// drawn-out delivery, handling punctuated forms like "hmm," or "um.".
func ElongateFillers(text string) string {
	for _, f := range fillerElongations {
		text = f.punctRe.ReplaceAllString(text, f.long+" ")
		text = f.bareRe.ReplaceAllString(text, f.long)
	}
	return text
}

// insertPauses scans for token-plus-whitespace matches and inserts a pause
// marker between the token and the following word, skipping matches already
// followed by punctuation.
func insertPauses(text string, re *regexp.Regexp, marker func(token string) string) string {
	var b strings.Builder
	last := 0
	for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
		token := text[m[2]:m[3]]
		spaceEnd := m[5]
		if spaceEnd >= len(text) || isPauseBoundary(text[spaceEnd]) {
			continue
		}
		b.WriteString(text[last:m[3]])
		b.WriteString(marker(token))
		b.WriteString(text[m[3]:spaceEnd])
		last = spaceEnd
	}
	b.WriteString(text[last:])
	return b.String()
}

func isPauseBoundary(c byte) bool {
	switch c {
	case ' ', '\t', '\n', ',', '.', '!', '?':
		return true
	}
	return false
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// String renders the prosody cues for debug logging
func (p Prosody) String() string {
	return fmt.Sprintf("elong=%d question=%d linebreak=%d exclaim=%d",
		p.Elong, p.Question, p.Linebreak, p.Exclaim)
}
