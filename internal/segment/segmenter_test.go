package segment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docledger/internal/document"
)

func TestSplitPageIntegrity(t *testing.T) {
	pages := []document.Page{
		{Number: 1, Text: strings.Repeat("a", 30)},
		{Number: 2, Text: strings.Repeat("b", 30)},
		{Number: 3, Text: strings.Repeat("c", 30)},
		{Number: 4, Text: strings.Repeat("d", 5)},
	}

	segments, err := Split(pages, 50)
	require.NoError(t, err)
	require.Len(t, segments, 2)

	// Concatenating segment texts in order reproduces the page-ordered text
	// exactly: page boundaries are never split.
	var joined strings.Builder
	for i, seg := range segments {
		assert.Equal(t, i, seg.Index)
		joined.WriteString(seg.Text)
	}
	var original strings.Builder
	for _, p := range pages {
		original.WriteString(p.Text)
	}
	assert.Equal(t, original.String(), joined.String())

	assert.Equal(t, 1, segments[0].PageRange.Start)
	assert.Equal(t, 2, segments[0].PageRange.End)
	assert.Equal(t, 3, segments[1].PageRange.Start)
	assert.Equal(t, 4, segments[1].PageRange.End)
	assert.Equal(t, 0, segments[0].StartPosition)
	assert.Equal(t, 50, segments[1].StartPosition)
}

func TestSplitOversizedPage(t *testing.T) {
	pages := []document.Page{
		{Number: 1, Text: strings.Repeat("x", 500)},
		{Number: 2, Text: "tail"},
	}

	segments, err := Split(pages, 100)
	require.NoError(t, err)
	require.Len(t, segments, 2)

	// A page larger than the budget still closes as one oversized segment.
	assert.Len(t, segments[0].Text, 500)
	assert.Equal(t, 1, segments[0].PageRange.Start)
	assert.Equal(t, 1, segments[0].PageRange.End)
	assert.Equal(t, "tail", segments[1].Text)
}

func TestSplitZeroPages(t *testing.T) {
	segments, err := Split(nil, 100)
	require.NoError(t, err)
	assert.Empty(t, segments)
}

func TestSplitRejectsMalformedPages(t *testing.T) {
	_, err := Split([]document.Page{{Number: 0, Text: "x"}}, 100)
	require.Error(t, err)

	_, err = Split([]document.Page{{Number: 2, Text: "a"}, {Number: 1, Text: "b"}}, 100)
	require.Error(t, err)

	_, err = Split([]document.Page{{Number: 1, Text: "a"}}, 0)
	require.Error(t, err)
}

func TestSplitDeterministic(t *testing.T) {
	pages := []document.Page{
		{Number: 1, Text: "first page text"},
		{Number: 2, Text: "second page text"},
		{Number: 3, Text: "third page text"},
	}
	a, err := Split(pages, 20)
	require.NoError(t, err)
	b, err := Split(pages, 20)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPageTextMap(t *testing.T) {
	pages := []document.Page{{Number: 3, Text: "three"}, {Number: 7, Text: "seven"}}
	m := PageTextMap(pages)
	assert.Equal(t, "three", m[3])
	assert.Equal(t, "seven", m[7])
	_, ok := m[1]
	assert.False(t, ok)
}
