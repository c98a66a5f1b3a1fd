package generate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"masterplan-studio/internal/jobs"
)

func TestExtractBlocksInlineSVG(t *testing.T) {
	out := ExtractBlocks(`The login screen keeps things minimal.

<svg width="100" height="100"><rect/></svg>

Next is the dashboard.`)

	require.Len(t, out, 3)
	assert.Equal(t, jobs.BlockText, out[0].Type)
	assert.Equal(t, "The login screen keeps things minimal.", out[0].Content)
	assert.Equal(t, jobs.BlockSVG, out[1].Type)
	assert.Contains(t, out[1].Content, "<rect/>")
	assert.Equal(t, "Next is the dashboard.", out[2].Content)
}

func TestExtractBlocksFencedSVG(t *testing.T) {
	out := ExtractBlocks("Overview diagram:\n```svg\n<svg><circle/></svg>\n```\n")

	require.Len(t, out, 2)
	assert.Equal(t, jobs.BlockSVG, out[1].Type)
	assert.Equal(t, "<svg><circle/></svg>", out[1].Content)
}

func TestExtractBlocksNoSVG(t *testing.T) {
	out := ExtractBlocks("Just prose, no diagrams.")
	require.Len(t, out, 1)
	assert.Equal(t, jobs.BlockText, out[0].Type)
}

func TestExtractBlocksEmpty(t *testing.T) {
	assert.Empty(t, ExtractBlocks("   \n"))
}

func TestExtractBlocksMultipleSVGs(t *testing.T) {
	out := ExtractBlocks(`<svg id="a"></svg><svg id="b"></svg>`)
	require.Len(t, out, 2)
	assert.Equal(t, jobs.BlockSVG, out[0].Type)
	assert.Contains(t, out[0].Content, `id="a"`)
	assert.Contains(t, out[1].Content, `id="b"`)
}
