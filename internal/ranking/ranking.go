// Package ranking scores and orders competing indexer results for a
// requested title. Pure: no I/O, deterministic for identical inputs, and
// the sort is stable so ties keep their input order.
package ranking

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/audiarr/audiarr/internal/models"
)

// Score weights. Match dominates: a wrong-book grab is worse than a
// low-quality one.
const (
	maxFormatScore  = 25.0
	maxSeederScore  = 15.0
	maxSizeScore    = 10.0
	maxMatchScore   = 50.0
	maxTitleScore   = 35.0
	maxAuthorScore  = 15.0
	neutralSizeScore = 5.0
)

// Audio is expected at 1-2 MB per minute.
const (
	minBytesPerMinute = 1 * 1024 * 1024
	maxBytesPerMinute = 2 * 1024 * 1024
)

// Target describes the work being searched for.
type Target struct {
	Title           string
	Author          string
	DurationMinutes int // 0 when unknown
}

// Options carries the secondary consumer mode: pre-resolved indexer
// priorities and flag weights applied as additive bonuses, recorded
// separately so the base four-term score stays auditable.
type Options struct {
	IndexerPriorities map[int64]float64 // indexer id -> bonus
	FlagWeights       map[string]float64
}

// Breakdown is the per-term score annotation on a ranked candidate.
type Breakdown struct {
	Format  float64 `json:"format"`
	Seeders float64 `json:"seeders"`
	Size    float64 `json:"size"`
	Match   float64 `json:"match"`
}

// RankedCandidate is a candidate annotated with its score breakdown and
// advisory notes.
type RankedCandidate struct {
	models.Candidate
	Score     float64   `json:"score"` // base score, max 100
	Bonus     float64   `json:"bonus"` // indexer priority / flag modifiers
	Total     float64   `json:"total"`
	Breakdown Breakdown `json:"breakdown"`
	Notes     []string  `json:"notes,omitempty"`
}

// Rank scores all candidates against the target and returns them sorted
// best-first.
func Rank(candidates []models.Candidate, target Target, opts *Options) []RankedCandidate {
	ranked := make([]RankedCandidate, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, score(c, target, opts))
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Total > ranked[j].Total
	})
	return ranked
}

func score(c models.Candidate, target Target, opts *Options) RankedCandidate {
	rc := RankedCandidate{Candidate: c}

	rc.Breakdown.Format = formatScore(c)
	rc.Breakdown.Seeders = seederScore(c.Seeders)
	rc.Breakdown.Size = sizeScore(c.SizeBytes, target.DurationMinutes)
	rc.Breakdown.Match = titleScore(c.Title, target.Title) + authorScore(c.Title, target.Author)

	rc.Score = rc.Breakdown.Format + rc.Breakdown.Seeders + rc.Breakdown.Size + rc.Breakdown.Match

	if opts != nil {
		if bonus, ok := opts.IndexerPriorities[c.IndexerID]; ok {
			rc.Bonus += bonus
		}
		for _, flag := range c.Flags {
			if w, ok := opts.FlagWeights[strings.ToLower(flag)]; ok {
				rc.Bonus += w
			}
		}
	}
	rc.Total = rc.Score + rc.Bonus

	rc.Notes = notes(rc, target)
	return rc
}

// formatScore infers the container from an explicit hint or from keywords
// in the title.
func formatScore(c models.Candidate) float64 {
	title := strings.ToLower(c.Title)
	format := strings.ToLower(c.Format)
	if format == "" {
		switch {
		case strings.Contains(title, "m4b"):
			format = "m4b"
		case strings.Contains(title, "m4a"):
			format = "m4a"
		case strings.Contains(title, "mp3"):
			format = "mp3"
		}
	}

	switch format {
	case "m4b":
		if hasChapters(c, title) {
			return 25
		}
		return 22
	case "m4a":
		return 16
	case "mp3":
		return 10
	}
	return 3
}

func hasChapters(c models.Candidate, loweredTitle string) bool {
	if c.HasChapters != nil {
		return *c.HasChapters
	}
	return strings.Contains(loweredTitle, "chapter")
}

// seederScore is logarithmic: doubling seeders matters less the more
// there already are. Zero seeders score zero but are not filtered here.
func seederScore(seeders int) float64 {
	if seeders <= 0 {
		return 0
	}
	return math.Min(maxSeederScore, math.Log10(float64(seeders)+1)*6)
}

// sizeScore expects audio at 1-2 MB/minute. Candidates outside the window
// lose score proportional to their relative deviation, floored at zero.
// Unknown duration scores a neutral 5.
func sizeScore(sizeBytes int64, durationMinutes int) float64 {
	if durationMinutes <= 0 || sizeBytes <= 0 {
		return neutralSizeScore
	}
	minSize := float64(durationMinutes) * minBytesPerMinute
	maxSize := float64(durationMinutes) * maxBytesPerMinute
	size := float64(sizeBytes)

	if size >= minSize && size <= maxSize {
		return maxSizeScore
	}
	var deviation float64
	if size < minSize {
		deviation = (minSize - size) / minSize
	} else {
		deviation = (size - maxSize) / maxSize
	}
	return math.Max(0, maxSizeScore*(1-deviation))
}

// titleSeparators are the characters/phrases that legitimately follow a
// complete title inside a release name.
var titleSeparators = []string{"by ", "- ", "(", "[", ":", ",", ";", "–"}

// titleScore awards the full 35 points only when the target title appears
// as a content-complete substring of the candidate title. A title that
// continues into more words (series collisions like "The Housemaid" vs
// "The Housemaid's Secret") falls back to fuzzy similarity.
func titleScore(candidateTitle, targetTitle string) float64 {
	target := strings.ToLower(strings.TrimSpace(targetTitle))
	candidate := strings.ToLower(candidateTitle)
	if target == "" {
		return 0
	}

	idx := strings.Index(candidate, target)
	if idx >= 0 {
		after := candidate[idx+len(target):]
		if contentComplete(after) {
			return maxTitleScore
		}
		// Present but continuing into more words: likely a different
		// entry in the same series.
		return similarity(target, candidate) * maxTitleScore
	}
	return similarity(target, candidate) * maxTitleScore
}

func contentComplete(after string) bool {
	if after == "" {
		return true
	}
	trimmed := strings.TrimLeft(after, " ")
	if trimmed == "" {
		return true
	}
	// A separator after the title means the title ended; anything else
	// (letters, apostrophes) means the title kept going.
	if after[0] != ' ' && !strings.ContainsAny(after[:1], "([:,;-") {
		return false
	}
	for _, sep := range titleSeparators {
		if strings.HasPrefix(trimmed, sep) {
			return true
		}
	}
	return false
}

// authorTokenDropList holds role words that show up inside author fields.
var authorTokenDropList = map[string]bool{"translator": true, "narrator": true}

// authorScore splits the requested author field on separators and awards
// proportional credit for tokens appearing verbatim in the candidate
// title; fuzzy fallback when nothing matches verbatim.
func authorScore(candidateTitle, targetAuthor string) float64 {
	author := strings.TrimSpace(targetAuthor)
	if author == "" {
		return 0
	}
	candidate := strings.ToLower(candidateTitle)

	tokens := splitAuthors(author)
	if len(tokens) == 0 {
		return similarity(author, candidateTitle) * maxAuthorScore
	}

	matched := 0
	for _, token := range tokens {
		if strings.Contains(candidate, strings.ToLower(token)) {
			matched++
		}
	}
	if matched == 0 {
		return similarity(author, candidateTitle) * maxAuthorScore
	}
	return float64(matched) / float64(len(tokens)) * maxAuthorScore
}

func splitAuthors(author string) []string {
	replaced := strings.NewReplacer(" and ", ",", " & ", ",", "&", ",", " - ", ",").Replace(author)
	parts := strings.Split(replaced, ",")
	var tokens []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if len(p) <= 2 {
			continue
		}
		if authorTokenDropList[strings.ToLower(p)] {
			continue
		}
		tokens = append(tokens, p)
	}
	return tokens
}

// notes produces the human-readable assessment. Advisory only; none of it
// feeds back into the score.
func notes(rc RankedCandidate, target Target) []string {
	var out []string
	switch {
	case rc.Score >= 75:
		out = append(out, "excellent candidate")
	case rc.Score >= 55:
		out = append(out, "good candidate")
	case rc.Score < 35:
		out = append(out, "low score; reconsider before grabbing")
	}
	if rc.Seeders == 0 && rc.DetectProtocol() == models.ProtocolTorrent {
		out = append(out, "no seeders; download may stall")
	}
	if rc.Breakdown.Format <= 3 {
		out = append(out, "unknown audio format")
	}
	if target.DurationMinutes > 0 && rc.Breakdown.Size < maxSizeScore && rc.SizeBytes > 0 {
		out = append(out, fmt.Sprintf("size %d MB is outside the expected range for %d minutes",
			rc.SizeBytes/(1024*1024), target.DurationMinutes))
	}
	return out
}
