package session

import (
	"strings"

	"github.com/borosabel/orchestrator/pkg/domain"
)

// InferenceHook runs after a turn is recorded and may enrich the
// preference map. It is best-effort post-turn enrichment, never a
// correctness-critical path, which is why it is pluggable.
type InferenceHook func(turn domain.Turn, prefs domain.FieldMap)

// Preference keys written by the default hook.
const (
	PrefTimeOfDay = "preferred_time_of_day"
	PrefDays      = "preferred_days"
)

var timesOfDay = []string{"morning", "afternoon", "evening", "night"}

var weekdays = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

// InferPreferences is the default passive inference hook. Preferences are
// never requested from the user; they are gleaned from what the user
// already said. A mentioned time of day overwrites the previous one;
// mentioned weekdays accumulate into a deduplicated set.
func InferPreferences(turn domain.Turn, prefs domain.FieldMap) {
	haystack := strings.ToLower(turn.UserInput)
	for _, v := range turn.Slots {
		if !domain.IsEmpty(v) {
			haystack += " " + strings.ToLower(v.String())
		}
	}

	for _, tod := range timesOfDay {
		if containsWord(haystack, tod) {
			prefs[PrefTimeOfDay] = domain.StringValue(tod)
		}
	}

	known := make(map[string]bool)
	var days []string
	if existing, ok := prefs.GetString(PrefDays); ok {
		for _, d := range strings.Split(existing, ",") {
			if d != "" && !known[d] {
				known[d] = true
				days = append(days, d)
			}
		}
	}
	for _, day := range weekdays {
		if containsWord(haystack, day) && !known[day] {
			known[day] = true
			days = append(days, day)
		}
	}
	if len(days) > 0 {
		prefs[PrefDays] = domain.StringValue(strings.Join(days, ","))
	}
}

// containsWord matches whole words only, so "monday" does not fire on
// arbitrary substrings.
func containsWord(haystack, word string) bool {
	idx := 0
	for {
		i := strings.Index(haystack[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isLetter(haystack[start-1])
		afterOK := end == len(haystack) || !isLetter(haystack[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
