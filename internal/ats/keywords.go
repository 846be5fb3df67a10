package ats

import (
	"strings"

	"cvcraft/internal/resume"
)

const (
	skillPoints  = 20.0
	bucketPoints = 15.0
	listLimit    = 10
)

type BucketResult struct {
	Bucket  string   `json:"bucket"`
	Matches []string `json:"matches"`
	Missing []string `json:"missing"`
	Ratio   float64  `json:"ratio"`
}

type KeywordCoverage struct {
	Score              float64        `json:"score"`
	SkillCoverageRatio float64        `json:"skillCoverageRatio"`
	MatchedSkills      []string       `json:"matchedSkills"`
	MissingSkills      []string       `json:"missingSkills"`
	BucketResults      []BucketResult `json:"bucketResults"`
	CoverageRatio      float64        `json:"coverageRatio"`
	MissingKeywords    []string       `json:"missingKeywords"`
}

func scoreBucket(text string, bucket keywordBucket) BucketResult {
	result := BucketResult{
		Bucket:  bucket.name,
		Matches: []string{},
		Missing: []string{},
	}
	for _, kw := range bucket.keywords {
		if strings.Contains(text, kw) {
			result.Matches = append(result.Matches, kw)
		} else {
			result.Missing = append(result.Missing, kw)
		}
	}
	result.Ratio = ratio(len(result.Matches), len(bucket.keywords))
	return result
}

// MatchSkills checks each lowercased skill for substring presence in text.
// Empty skills count toward the denominator but are never matched or
// reported. Missing skills are capped at ten.
func MatchSkills(text string, skills []string) (matched, missing []string, coverage float64) {
	matched, missing = []string{}, []string{}
	for _, raw := range skills {
		skill := strings.ToLower(raw)
		if skill == "" {
			continue
		}
		if strings.Contains(text, skill) {
			matched = append(matched, skill)
		} else if len(missing) < listLimit {
			missing = append(missing, skill)
		}
	}
	return matched, missing, ratio(len(matched), len(skills))
}

// AnalyzeKeywords scores how many listed skills appear in the collected text
// (20 points) and how well each impact-language bucket is covered (15 points).
func AnalyzeKeywords(doc resume.Document) KeywordCoverage {
	text := CollectText(doc)

	matched, missing, skillRatio := MatchSkills(text, doc.Skills)
	out := KeywordCoverage{
		SkillCoverageRatio: skillRatio,
		MatchedSkills:      matched,
		MissingSkills:      missing,
		MissingKeywords:    []string{},
	}

	out.BucketResults = make([]BucketResult, len(keywordBuckets))
	var ratioSum float64
	for i, bucket := range keywordBuckets {
		out.BucketResults[i] = scoreBucket(text, bucket)
		ratioSum += out.BucketResults[i].Ratio
	}
	bucketRatio := 0.0
	if len(keywordBuckets) > 0 {
		bucketRatio = ratioSum / float64(len(keywordBuckets))
	}

	for _, b := range out.BucketResults {
		for _, kw := range b.Missing {
			if len(out.MissingKeywords) == listLimit {
				break
			}
			out.MissingKeywords = append(out.MissingKeywords, kw)
		}
	}

	out.Score = clamp(skillRatio*skillPoints+bucketRatio*bucketPoints, 0, KeywordWeight)
	if len(doc.Skills) > 0 {
		out.CoverageRatio = skillRatio
	} else {
		out.CoverageRatio = bucketRatio
	}
	return out
}
