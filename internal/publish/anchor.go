package publish

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/sevigo/review-relay/internal/core"
)

var hunkHeaderRegex = regexp.MustCompile(`^@@ -\d+(?:,\d+)? \+(\d+)(?:,\d+)? @@`)

// parseValidLines extracts all line numbers that can receive an inline comment,
// the lines present on the new side of the unified diff.
func parseValidLines(diff string, logger *slog.Logger) map[int]struct{} {
	validLines := make(map[int]struct{})
	currentLine := -1

	for _, line := range strings.Split(diff, "\n") {
		if strings.HasPrefix(line, "@@") {
			matches := hunkHeaderRegex.FindStringSubmatch(line)
			if len(matches) >= 2 {
				start, err := strconv.Atoi(matches[1])
				if err != nil {
					// Skip malformed hunk; don't use corrupted line numbers
					if logger != nil {
						logger.Warn("skipped malformed hunk header", "line", line, "error", err)
					}
					currentLine = -1
					continue
				}
				currentLine = start
			}
			continue
		}

		if currentLine == -1 {
			continue
		}

		// In a unified diff, ' ' and '+' lines exist on the new side; '-'
		// lines only on the old one.
		switch {
		case strings.HasPrefix(line, "+"), strings.HasPrefix(line, " "):
			validLines[currentLine] = struct{}{}
			currentLine++
		default:
		}
	}

	return validLines
}

// validLinesByFile parses each file's diff into its commentable line set.
// Files carried without a diff get no entry.
func validLinesByFile(files []core.ReviewFile, logger *slog.Logger) map[string]map[int]struct{} {
	maps := make(map[string]map[int]struct{})
	for _, f := range files {
		if f.Diff == "" {
			continue
		}
		maps[strings.TrimPrefix(f.Path, "./")] = parseValidLines(f.Diff, logger)
	}
	return maps
}

// anchorComments validates each comment's claimed file and line against the
// task's diffs. Comments that cannot be anchored are demoted to plain thread
// comments with the claimed location prefixed into the body, so a hallucinated
// line number costs an inline anchor rather than a failed API call. An empty
// map means no diffs travelled with the task and validation is skipped.
func anchorComments(comments []core.ReviewComment, validLines map[string]map[int]struct{}, logger *slog.Logger) []core.ReviewComment {
	if len(validLines) == 0 {
		return comments
	}

	out := make([]core.ReviewComment, 0, len(comments))
	for _, c := range comments {
		if c.FilePath == "" {
			out = append(out, c)
			continue
		}

		cleanPath := strings.TrimPrefix(c.FilePath, "./")
		lines, fileKnown := validLines[cleanPath]

		switch {
		case !fileKnown:
			logger.Warn("demoting comment to the conversation thread (file not in diff)",
				"path", c.FilePath)
			out = append(out, demote(c))
		case c.LineNumber > 0:
			if _, ok := lines[c.LineNumber]; ok {
				c.FilePath = cleanPath
				out = append(out, c)
			} else {
				logger.Warn("demoting comment to the conversation thread (off-diff line)",
					"path", c.FilePath,
					"line", c.LineNumber)
				out = append(out, demote(c))
			}
		default:
			// Position-addressed or lineless comments pass through untouched.
			c.FilePath = cleanPath
			out = append(out, c)
		}
	}
	return out
}

func demote(c core.ReviewComment) core.ReviewComment {
	location := c.FilePath
	if c.LineNumber > 0 {
		location = fmt.Sprintf("%s:%d", c.FilePath, c.LineNumber)
	}
	return core.ReviewComment{Comment: fmt.Sprintf("**%s**\n\n%s", location, c.Comment)}
}
