package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeCaptions(t *testing.T) {
	t.Run("empty script", func(t *testing.T) {
		assert.Nil(t, TimeCaptions("", 10, 6))
		assert.Nil(t, TimeCaptions("   ", 10, 6))
	})

	t.Run("zero duration", func(t *testing.T) {
		assert.Nil(t, TimeCaptions("some words here", 0, 6))
	})

	t.Run("even split", func(t *testing.T) {
		script := "one two three four five six seven eight nine ten eleven twelve"
		captions := TimeCaptions(script, 10, 6)
		require.Len(t, captions, 2)

		assert.Equal(t, "one two three four five six", captions[0].Text)
		assert.Equal(t, "seven eight nine ten eleven twelve", captions[1].Text)
		assert.InDelta(t, 0, captions[0].Start, 1e-9)
		assert.InDelta(t, 5, captions[0].End, 1e-9)
		assert.InDelta(t, 5, captions[1].Start, 1e-9)
		assert.Equal(t, 10.0, captions[1].End, "last caption must end at the narration end")
	})

	t.Run("remainder chunk", func(t *testing.T) {
		script := "a b c d e f g"
		captions := TimeCaptions(script, 7, 3)
		require.Len(t, captions, 3)
		assert.Equal(t, "a b c", captions[0].Text)
		assert.Equal(t, "d e f", captions[1].Text)
		assert.Equal(t, "g", captions[2].Text)
		assert.Equal(t, 7.0, captions[2].End)
	})

	t.Run("contiguous timing", func(t *testing.T) {
		captions := TimeCaptions("w w w w w w w w w w w", 13.37, 4)
		for i := 1; i < len(captions); i++ {
			assert.Equal(t, captions[i-1].End, captions[i].Start)
		}
	})
}

func TestNormalizeSegments(t *testing.T) {
	tests := []struct {
		name     string
		segments []SearchSegment
		total    float64
		want     []SearchSegment
	}{
		{
			name:  "empty input",
			total: 10,
			want:  nil,
		},
		{
			name: "all termless",
			segments: []SearchSegment{
				{Start: 0, End: 5},
				{Start: 5, End: 10},
			},
			total: 10,
			want:  nil,
		},
		{
			name: "already a clean cover",
			segments: []SearchSegment{
				{Start: 0, End: 4, Terms: []string{"coffee beans"}},
				{Start: 4, End: 10, Terms: []string{"espresso machine"}},
			},
			total: 10,
			want: []SearchSegment{
				{Start: 0, End: 4, Terms: []string{"coffee beans"}},
				{Start: 4, End: 10, Terms: []string{"espresso machine"}},
			},
		},
		{
			name: "gap absorbed by previous segment",
			segments: []SearchSegment{
				{Start: 0, End: 3, Terms: []string{"coffee beans"}},
				{Start: 6, End: 10, Terms: []string{"espresso machine"}},
			},
			total: 10,
			want: []SearchSegment{
				{Start: 0, End: 6, Terms: []string{"coffee beans"}},
				{Start: 6, End: 10, Terms: []string{"espresso machine"}},
			},
		},
		{
			name: "termless middle absorbed",
			segments: []SearchSegment{
				{Start: 0, End: 3, Terms: []string{"coffee beans"}},
				{Start: 3, End: 6},
				{Start: 6, End: 10, Terms: []string{"espresso machine"}},
			},
			total: 10,
			want: []SearchSegment{
				{Start: 0, End: 6, Terms: []string{"coffee beans"}},
				{Start: 6, End: 10, Terms: []string{"espresso machine"}},
			},
		},
		{
			name: "overlap clamped",
			segments: []SearchSegment{
				{Start: 0, End: 6, Terms: []string{"coffee beans"}},
				{Start: 4, End: 10, Terms: []string{"espresso machine"}},
			},
			total: 10,
			want: []SearchSegment{
				{Start: 0, End: 6, Terms: []string{"coffee beans"}},
				{Start: 6, End: 10, Terms: []string{"espresso machine"}},
			},
		},
		{
			name: "stretched to full range",
			segments: []SearchSegment{
				{Start: 2, End: 5, Terms: []string{"coffee beans"}},
			},
			total: 10,
			want: []SearchSegment{
				{Start: 0, End: 10, Terms: []string{"coffee beans"}},
			},
		},
		{
			name: "clipped to total",
			segments: []SearchSegment{
				{Start: 0, End: 8, Terms: []string{"coffee beans"}},
				{Start: 8, End: 15, Terms: []string{"espresso machine"}},
			},
			total: 10,
			want: []SearchSegment{
				{Start: 0, End: 8, Terms: []string{"coffee beans"}},
				{Start: 8, End: 10, Terms: []string{"espresso machine"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeSegments(tt.segments, tt.total)
			assert.Equal(t, tt.want, got)
		})
	}
}
