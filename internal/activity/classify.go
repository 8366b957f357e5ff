// Package activity maps free-text workout names onto the small set of activity
// types the native health store understands, and tidies native labels for display.
package activity

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"example.com/healthsync/internal/domain"
)

// Type is a canonical activity type written to the native store.
type Type string

const (
	Running          Type = "running"
	Walking          Type = "walking"
	Cycling          Type = "cycling"
	Swimming         Type = "swimming"
	Rowing           Type = "rowing"
	Elliptical       Type = "elliptical"
	HIIT             Type = "hiit"
	Yoga             Type = "yoga"
	Pilates          Type = "pilates"
	Hiking           Type = "hiking"
	StairClimbing    Type = "stair_climbing"
	StrengthTraining Type = "strength_training"
)

type rule struct {
	pattern *regexp.Regexp
	kind    Type
}

// Order matters: the first matching rule wins.
var rules = []rule{
	{regexp.MustCompile(`(?i)\b(run|runs|running|jog|jogging|treadmill)\b`), Running},
	{regexp.MustCompile(`(?i)\b(walk|walks|walking)\b`), Walking},
	{regexp.MustCompile(`(?i)\b(cycle|cycling|bike|biking|ride|spin|spinning)\b`), Cycling},
	{regexp.MustCompile(`(?i)\b(swim|swims|swimming)\b`), Swimming},
	{regexp.MustCompile(`(?i)\b(rowing|rower|erg)\b`), Rowing},
	{regexp.MustCompile(`(?i)\belliptical\b`), Elliptical},
	{regexp.MustCompile(`(?i)\b(hiit|tabata)\b`), HIIT},
	{regexp.MustCompile(`(?i)\byoga\b`), Yoga},
	{regexp.MustCompile(`(?i)\bpilates\b`), Pilates},
	{regexp.MustCompile(`(?i)\b(hike|hikes|hiking)\b`), Hiking},
	{regexp.MustCompile(`(?i)\b(stairs?|stairmaster|stair\s*climb(er|ing)?|step\s*mill)\b`), StairClimbing},
}

// Classify returns the activity type implied by a workout name, defaulting to
// strength training when nothing matches or the name is empty.
func Classify(name string) Type {
	name = strings.TrimSpace(name)
	if name == "" {
		return StrengthTraining
	}
	for _, r := range rules {
		if r.pattern.MatchString(name) {
			return r.kind
		}
	}
	return StrengthTraining
}

var (
	enumLeak     = regexp.MustCompile(`^[A-Z0-9]+(_[A-Z0-9]+)+$`)
	tokenSplit   = regexp.MustCompile(`[\s_\-]+`)
	sentinelText = map[string]struct{}{
		"imported_workout": {},
		"imported workout": {},
		"unknown":          {},
		"other":            {},
	}
)

// CanonicalLabel normalises a native activity label into a display name. It reports
// false for blank input so callers can apply their own fallback.
func CanonicalLabel(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	if isSentinel(trimmed) {
		return domain.FallbackWorkoutName, true
	}

	tokens := tokenSplit.Split(trimmed, -1)
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if token == "" {
			continue
		}
		out = append(out, titleWord(token))
	}
	if len(out) == 0 {
		return "", false
	}
	return strings.Join(out, " "), true
}

func isSentinel(label string) bool {
	if _, ok := sentinelText[strings.ToLower(label)]; ok {
		return true
	}
	if strings.HasPrefix(label, "HKWorkoutActivityType") {
		return true
	}
	return enumLeak.MatchString(label)
}

func titleWord(word string) string {
	r, size := utf8.DecodeRuneInString(word)
	if r == utf8.RuneError {
		return word
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(word[size:])
}
