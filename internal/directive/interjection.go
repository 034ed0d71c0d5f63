package directive

import (
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"
)

const (
	// recencyWindow bounds how many recently used tokens are excluded from
	// selection to avoid immediate repetition
	recencyWindow = 5
	// cooldownAfterInsert blocks insertion for this many evaluated
	// utterances after a token is inserted
	cooldownAfterInsert = 2
	// maxInterjectableLen: longer utterances carry enough content on their
	// own and never receive an interjection
	maxInterjectableLen = 64
)

// containsInterjectionRe detects utterances that already open with or
// contain an interjection-like token; those are never decorated again.
var containsInterjectionRe = regexp.MustCompile(
	`(?i)\b(aww|oops|hehe|haha|hmm|oh|ah|wow|whoa|yum|uh|ooh|phew|huh|yikes|eek|ugh|ew|yay|woohoo|welp|pfft|shh|mmm|wowza|oopsie)\b`)

// affectLexiconRe scores a point for affect-laden vocabulary
var affectLexiconRe = regexp.MustCompile(`(?i)\b(thank|sorry|congrat\w*|amazing|really|wow|why)\b|\?$`)

var interjectionsByStyle = map[string][]string{
	StyleApology:       {"oh no", "oops", "ah", "yikes"},
	StyleCelebration:   {"wow!", "yay!", "woohoo!", "oh!"},
	StyleGratitude:     {"aww", "oh!", "hehe"},
	StyleComfort:       {"aww", "oh", "hmm"},
	StyleTeasing:       {"hehe", "heh", "ooh", "ah~"},
	StyleRomantic:      {"hehe", "aww", "mmm"},
	StyleWhisper:       {"shh", "hmm", "hehe"},
	StyleSerious:       {"hmm", "well"},
	StyleAuthority:     {"alright", "now", "hey!"},
	StyleUrgency:       {"whoa!", "quick!", "hey!"},
	StyleCurious:       {"huh?", "oh?", "hmm"},
	StyleStorytelling:  {"hmm", "so...", "well"},
	StyleInstructional: {"alright", "okay", "hmm"},
	StyleHumor:         {"hehe", "haha", "pfft"},
	StyleCalm:          {"hmm", "ah", "mmm"},
	StyleInterjection:  {"wow!", "whoa", "oops", "aww", "hehe", "huh", "ooh", "phew"},
}

var interjectionsByEmotion = map[string][]string{
	"joy":      {"wow!", "yay!", "woohoo!", "oh!", "ooh!"},
	"happy":    {"wow!", "yay!", "woohoo!", "oh!", "ooh!"},
	"surprise": {"huh?!", "what?!", "whoa!", "no way!", "wait, really?!"},
	"sadness":  {"ah...", "oh...", "aww...", "sigh..."},
	"sad":      {"ah...", "oh...", "aww...", "sigh..."},
	"anger":    {"hey!", "seriously?!", "ugh!", "enough!"},
	"fear":     {"huh?", "eek", "oh no", "wait", "please"},
	"disgust":  {"ew", "ugh", "yuck", "bleh"},
	"smirk":    {"ah~", "heh", "oh really~", "pfft"},
	"neutral":  {"ah~", "hmm~", "i see", "right", "well"},
}

var dryStyles = map[string]bool{
	StyleInstructional: true,
	StyleAuthority:     true,
	StyleSerious:       true,
}

var affectiveStyles = map[string]bool{
	StyleInterjection: true,
	StyleCelebration:  true,
	StyleApology:      true,
	StyleGratitude:    true,
	StyleComfort:      true,
	StyleTeasing:      true,
	StyleHumor:        true,
	StyleCurious:      true,
	StyleRomantic:     true,
}

var affectiveEmotions = map[string]bool{
	"joy":      true,
	"surprise": true,
	"fear":     true,
	"sadness":  true,
	"smirk":    true,
	"anger":    true,
}

// Injector probabilistically prepends a contextual interjection to short,
// affect-heavy utterances. It is stateful: a recency ring avoids repeating
// tokens and a cooldown counter spaces insertions out across utterances.
// Safe for concurrent use.
type Injector struct {
	mu       sync.Mutex
	rng      *rand.Rand
	recent   []string
	cooldown int
}

// NewInjector creates an injector seeded for reproducible token choice in
// tests. A zero seed draws from the wall clock so independent sessions do
// not share a token stream.
func NewInjector(seed int64) *Injector {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Injector{rng: rand.New(rand.NewSource(seed))}
}

// MaybeInsert evaluates one utterance and either returns it unchanged or
// with an interjection prepended. Each call counts against the cooldown.
func (in *Injector) MaybeInsert(text string, styles, emotions []string, prosody Prosody) string {
	stripped := strings.TrimSpace(text)
	if stripped == "" {
		return text
	}
	if containsInterjectionRe.MatchString(stripped) {
		return text
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	if !in.shouldInsert(stripped, styles, emotions, prosody) {
		return text
	}

	token := in.pick(styles, emotions)
	in.cooldown = cooldownAfterInsert
	return token + " " + stripped
}

// Reset clears the recency ring and cooldown counter
func (in *Injector) Reset() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.recent = nil
	in.cooldown = 0
}

// shouldInsert computes the affect score and rolls against the step table.
// Caller holds the lock.
func (in *Injector) shouldInsert(text string, styles, emotions []string, prosody Prosody) bool {
	if in.cooldown > 0 {
		in.cooldown--
		return false
	}
	if len(text) > maxInterjectableLen {
		return false
	}

	score := 0
	if anyIn(styles, affectiveStyles) {
		score += 2
	}
	if anyIn(styles, dryStyles) {
		score -= 2
	}
	if anyIn(emotions, affectiveEmotions) {
		score++
	}
	if prosody.Elong > 0 || prosody.Question > 0 {
		score++
	}
	if affectLexiconRe.MatchString(strings.ToLower(text)) {
		score++
	}

	var probability float64
	switch {
	case score <= 0:
		return false
	case score >= 4:
		probability = 0.65
	case score == 3:
		probability = 0.48
	case score == 2:
		probability = 0.32
	default:
		probability = 0.22
	}

	return in.rng.Float64() < probability
}

// pick chooses a token from the style/emotion candidate pool, avoiding the
// most recently used tokens when enough distinct candidates exist.
// Caller holds the lock.
func (in *Injector) pick(styles, emotions []string) string {
	var candidates []string
	for _, style := range styles {
		candidates = append(candidates, interjectionsByStyle[style]...)
	}
	for _, emotion := range emotions {
		candidates = append(candidates, interjectionsByEmotion[emotion]...)
	}
	if len(candidates) == 0 {
		candidates = interjectionsByStyle[StyleInterjection]
	}

	deduped := dedupe(candidates)
	var pool []string
	for _, c := range deduped {
		if !contains(in.recent, c) {
			pool = append(pool, c)
		}
	}
	if len(pool) == 0 {
		pool = deduped
	}

	chosen := pool[in.rng.Intn(len(pool))]
	in.recent = append(in.recent, chosen)
	if len(in.recent) > recencyWindow {
		in.recent = in.recent[len(in.recent)-recencyWindow:]
	}
	return chosen
}

func anyIn(list []string, set map[string]bool) bool {
	for _, v := range list {
		if set[v] {
			return true
		}
	}
	return false
}

func dedupe(list []string) []string {
	seen := make(map[string]bool, len(list))
	var out []string
	for _, v := range list {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
