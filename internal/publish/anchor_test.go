package publish

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/review-relay/internal/core"
)

const samplePatch = `@@ -1,3 +1,4 @@
 package main
+import "fmt"

 func main() {
@@ -10,2 +11,3 @@
 	run()
+	fmt.Println("done")
 }`

func TestParseValidLines(t *testing.T) {
	lines := parseValidLines(samplePatch, discardLogger())

	// First hunk covers new-side lines 1..4, second hunk lines 11..13.
	for _, want := range []int{1, 2, 3, 4, 11, 12, 13} {
		if _, ok := lines[want]; !ok {
			t.Errorf("expected line %d to be commentable", want)
		}
	}
	for _, unwanted := range []int{0, 5, 10, 14} {
		if _, ok := lines[unwanted]; ok {
			t.Errorf("line %d should not be commentable", unwanted)
		}
	}
}

func TestParseValidLines_MalformedHunk(t *testing.T) {
	lines := parseValidLines("@@ garbage @@\n+added", discardLogger())
	assert.Empty(t, lines)
}

func TestAnchorComments(t *testing.T) {
	validLines := validLinesByFile([]core.ReviewFile{
		{Path: "./main.go", Diff: samplePatch},
		{Path: "docs/readme.md"}, // no diff, no entry
	}, discardLogger())

	comments := []core.ReviewComment{
		{FilePath: "main.go", LineNumber: 2, Comment: "on-diff"},
		{FilePath: "./main.go", LineNumber: 2, Comment: "prefixed path"},
		{FilePath: "main.go", LineNumber: 99, Comment: "off-diff line"},
		{FilePath: "vendor/dep.go", LineNumber: 1, Comment: "unknown file"},
		{Comment: "general remark"},
	}

	anchored := anchorComments(comments, validLines, discardLogger())
	require.Len(t, anchored, 5)

	assert.Equal(t, "main.go", anchored[0].FilePath)
	assert.Equal(t, 2, anchored[0].LineNumber)

	assert.Equal(t, "main.go", anchored[1].FilePath, "path prefix is normalized")

	assert.Empty(t, anchored[2].FilePath, "off-diff comment loses its anchor")
	assert.Contains(t, anchored[2].Comment, "**main.go:99**")
	assert.Contains(t, anchored[2].Comment, "off-diff line")

	assert.Empty(t, anchored[3].FilePath, "unknown file loses its anchor")
	assert.Contains(t, anchored[3].Comment, "**vendor/dep.go:1**")

	assert.Equal(t, "general remark", anchored[4].Comment, "unanchored comments pass through")
}

func TestAnchorComments_NoDiffsSkipsValidation(t *testing.T) {
	comments := []core.ReviewComment{
		{FilePath: "anything.go", LineNumber: 123, Comment: "kept as is"},
	}

	anchored := anchorComments(comments, nil, discardLogger())

	require.Len(t, anchored, 1)
	assert.Equal(t, "anything.go", anchored[0].FilePath)
	assert.Equal(t, 123, anchored[0].LineNumber)
}
