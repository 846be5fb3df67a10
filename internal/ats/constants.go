// Package ats implements the deterministic ATS scoring pipeline and the
// export readiness gate. Every function is pure: it reads only its document
// argument and is safe to call concurrently.
package ats

import "regexp"

// Category weight caps.
const (
	KeywordWeight      = 35.0
	CompletenessWeight = 25.0
	ExperienceWeight   = 20.0
	FormattingWeight   = 20.0

	MaxImprovementAreas = 8
)

var actionVerbs = map[string]struct{}{
	"led": {}, "managed": {}, "architected": {}, "built": {}, "created": {}, "developed": {},
	"designed": {}, "implemented": {}, "launched": {}, "shipped": {}, "optimized": {},
	"improved": {}, "reduced": {}, "increased": {}, "accelerated": {}, "automated": {},
	"modernized": {}, "migrated": {}, "scaled": {}, "mentored": {}, "collaborated": {},
	"delivered": {},
}

type keywordBucket struct {
	name     string
	keywords []string
}

// Bucket order is part of the output: missing keywords are reported in it.
var keywordBuckets = []keywordBucket{
	{"impact", []string{"improved", "reduced", "increased", "accelerated", "boosted", "cut", "optimized"}},
	{"delivery", []string{"shipped", "launched", "deployed", "released", "delivered"}},
	{"leadership", []string{"led", "managed", "mentored", "coached", "owned"}},
	{"collaboration", []string{"collaborated", "partnered", "cross-functional", "stakeholder"}},
	{"quality", []string{"reliability", "availability", "performance", "scalability", "security", "quality"}},
}

var (
	dateRegex       = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)
	digitRegex      = regexp.MustCompile(`\d`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// IsActionVerb reports whether word (already lowercased) is a recognised action verb.
func IsActionVerb(word string) bool {
	_, ok := actionVerbs[word]
	return ok
}

// BucketNames lists keyword buckets in reporting order.
func BucketNames() []string {
	names := make([]string, len(keywordBuckets))
	for i, b := range keywordBuckets {
		names[i] = b.name
	}
	return names
}

func clamp(value, lo, hi float64) float64 {
	return min(max(value, lo), hi)
}

func ratio(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole)
}
