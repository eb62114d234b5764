package pipeline

import (
	"sort"
	"strings"
)

// TimeCaptions splits the script into caption chunks of at most maxWords
// words and times each chunk proportionally to its word count over the
// narration duration. The final caption always ends exactly at total.
func TimeCaptions(script string, total float64, maxWords int) []CaptionSegment {
	words := strings.Fields(script)
	if len(words) == 0 || total <= 0 {
		return nil
	}
	if maxWords < 1 {
		maxWords = 1
	}

	perWord := total / float64(len(words))
	captions := make([]CaptionSegment, 0, (len(words)+maxWords-1)/maxWords)
	for i := 0; i < len(words); i += maxWords {
		end := i + maxWords
		if end > len(words) {
			end = len(words)
		}
		captions = append(captions, CaptionSegment{
			Start: float64(i) * perWord,
			End:   float64(end) * perWord,
			Text:  strings.Join(words[i:end], " "),
		})
	}
	captions[len(captions)-1].End = total
	return captions
}

// NormalizeSegments turns raw LLM footage segments into a clean cover of
// [0, total): segments with no terms are dropped and their span absorbed by
// a neighbor, overlaps are clamped, and the cover is stretched to start at
// zero and end at total. Returns nil when nothing usable remains.
func NormalizeSegments(segments []SearchSegment, total float64) []SearchSegment {
	if total <= 0 {
		return nil
	}

	usable := make([]SearchSegment, 0, len(segments))
	for _, s := range segments {
		if len(s.Terms) == 0 {
			continue
		}
		if s.Start < 0 {
			s.Start = 0
		}
		if s.End > total {
			s.End = total
		}
		if s.End <= s.Start {
			continue
		}
		usable = append(usable, s)
	}
	if len(usable) == 0 {
		return nil
	}

	sort.Slice(usable, func(i, j int) bool { return usable[i].Start < usable[j].Start })

	cover := make([]SearchSegment, 0, len(usable))
	for _, s := range usable {
		if len(cover) == 0 {
			s.Start = 0
			cover = append(cover, s)
			continue
		}
		prev := &cover[len(cover)-1]
		if s.Start > prev.End {
			prev.End = s.Start
		}
		if s.Start < prev.End {
			s.Start = prev.End
		}
		if s.End <= s.Start {
			continue
		}
		cover = append(cover, s)
	}

	result := make([]SearchSegment, 0, len(cover))
	for _, s := range cover {
		if s.Start >= total {
			break
		}
		if s.End > total {
			s.End = total
		}
		result = append(result, s)
	}
	if len(result) > 0 {
		result[len(result)-1].End = total
	}
	return result
}
