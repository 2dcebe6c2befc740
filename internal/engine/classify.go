package engine

import (
	"regexp"
	"sort"
	"strings"
)

// Keyword-pattern categorization applied when the caller supplies no
// category. Patterns are checked in order; first match wins.
var categoryPatterns = []struct {
	re       *regexp.Regexp
	category string
}{
	{regexp.MustCompile(`\bmeeting\b|\bconference\b|\bcall\b|\bdiscuss`), "meeting"},
	{regexp.MustCompile(`\btask\b|\btodo\b|\bassignment\b|\bcomplete`), "task"},
	{regexp.MustCompile(`\bidea\b|\bthought\b|\bconcept\b|\binspir`), "idea"},
	{regexp.MustCompile(`\bnote\b|\breminder\b|\bremember\b`), "note"},
	{regexp.MustCompile(`\bdecision\b|\bdecide\b|\bchoose\b|\bselect`), "decision"},
	{regexp.MustCompile(`\bdesign\b|\bsketch\b|\bmockup\b|\bprototype`), "design"},
	{regexp.MustCompile(`\bproject\b|\binitiative\b|\bwork\b`), "project"},
	{regexp.MustCompile(`\bplan\b|\bschedule\b|\bcalendar\b|\bagenda`), "planning"},
	{regexp.MustCompile(`\bresearch\b|\bstudy\b|\binvestigate\b|\banalyz`), "research"},
	{regexp.MustCompile(`\bgoal\b|\bobjective\b|\btarget\b|\baim`), "goal"},
	{regexp.MustCompile(`\bfeedback\b|\breview\b|\bcomment\b|\bcritique`), "feedback"},
}

// CategorizeContent guesses a category from the content's keywords.
// Returns "other" when nothing matches.
func CategorizeContent(content string) string {
	lower := strings.ToLower(content)
	for _, p := range categoryPatterns {
		if p.re.MatchString(lower) {
			return p.category
		}
	}
	return "other"
}

var (
	hashtagRe = regexp.MustCompile(`#(\w+)`)
	mentionRe = regexp.MustCompile(`@(\w+)`)
)

// ExtractTags pulls #hashtags and @mentions out of the content,
// deduplicated and sorted.
func ExtractTags(content string) []string {
	seen := make(map[string]bool)
	for _, m := range hashtagRe.FindAllStringSubmatch(content, -1) {
		seen[m[1]] = true
	}
	for _, m := range mentionRe.FindAllStringSubmatch(content, -1) {
		seen[m[1]] = true
	}
	if len(seen) == 0 {
		return nil
	}
	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

var (
	urgencyWords = []string{
		"important", "urgent", "critical", "priority",
		"remember", "deadline", "key", "crucial",
	}
	urgencyRes   = compileUrgency()
	uppercaseRe  = regexp.MustCompile(`\b[A-Z]{2,}\b`)
	maxExclBonus = 0.15
	maxCapsBonus = 0.1
)

func compileUrgency() []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(urgencyWords))
	for i, w := range urgencyWords {
		res[i] = regexp.MustCompile(`(?i)\b` + w + `\b`)
	}
	return res
}

// ScoreImportance derives an importance score from the content itself:
// base 0.5 plus 0.1 per urgency keyword, small bonuses for exclamation
// marks and ALL-CAPS emphasis, capped at 1.0.
func ScoreImportance(content string) float64 {
	importance := 0.5

	for _, re := range urgencyRes {
		if re.MatchString(content) {
			importance += 0.1
		}
	}

	exclBonus := float64(strings.Count(content, "!")) * 0.05
	if exclBonus > maxExclBonus {
		exclBonus = maxExclBonus
	}
	importance += exclBonus

	capsBonus := float64(len(uppercaseRe.FindAllString(content, -1))) * 0.05
	if capsBonus > maxCapsBonus {
		capsBonus = maxCapsBonus
	}
	importance += capsBonus

	if importance > 1.0 {
		return 1.0
	}
	return importance
}
