package segmenter

import (
	"regexp"
	"strings"

	"github.com/lexivn/legal-rag-backend/internal/core/domain"
)

var (
	articleMarker = regexp.MustCompile(`(?i)Điều\s+\d+[a-z]?\.?`)
	articleNumber = regexp.MustCompile(`(?i)\d+[a-z]?`)
)

// Boundary separators tried in order when closing a sliding-window chunk.
var chunkSeparators = []string{". ", ".\n", "\n\n", "\n"}

// Segmenter splits Vietnamese legal text into retrievable chunks. Documents
// with "Điều N" article markers are split at those markers, one chunk per
// article; anything else falls through to a sliding window with overlap.
// All offsets are rune-based.
type Segmenter struct {
	ChunkSize int
	Overlap   int
}

func New(chunkSize, overlap int) *Segmenter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	} else if overlap > chunkSize/2 {
		// A boundary cut can land just past the window midpoint; the next
		// start must stay ahead of the previous one.
		overlap = chunkSize / 2
	}
	return &Segmenter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

func (s *Segmenter) Segment(text string) []domain.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	if chunks := s.segmentByArticle(text); len(chunks) > 0 {
		return chunks
	}
	return s.segmentByWindow(text)
}

// segmentByArticle cuts the document at each article marker. The chunk text
// is the marker followed by its body on a new line; preamble text before the
// first marker is dropped. Returns nil when the document has no markers so
// the caller can fall back.
func (s *Segmenter) segmentByArticle(text string) []domain.Chunk {
	locs := articleMarker.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}

	out := make([]domain.Chunk, 0, len(locs))
	for i, loc := range locs {
		marker := strings.TrimSpace(text[loc[0]:loc[1]])

		bodyEnd := len(text)
		if i+1 < len(locs) {
			bodyEnd = locs[i+1][0]
		}
		body := strings.TrimSpace(text[loc[1]:bodyEnd])
		if body == "" {
			continue
		}

		out = append(out, domain.Chunk{
			Text:    marker + "\n" + body,
			Article: strings.ToLower(articleNumber.FindString(marker)),
			Index:   len(out),
		})
	}
	return out
}

// segmentByWindow slides a fixed-size window over the text, preferring to cut
// at a sentence boundary found in the second half of the window. The next
// window starts overlap runes before the previous cut.
func (s *Segmenter) segmentByWindow(text string) []domain.Chunk {
	runes := []rune(text)
	out := make([]domain.Chunk, 0, len(runes)/s.ChunkSize+1)

	start := 0
	for start < len(runes) {
		end := start + s.ChunkSize
		if end < len(runes) {
			for _, sep := range chunkSeparators {
				pos := lastIndexRunes(runes, sep, start, end)
				if pos > start+s.ChunkSize/2 {
					end = pos + len([]rune(sep))
					break
				}
			}
		} else {
			end = len(runes)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, domain.Chunk{Text: chunk, Index: len(out)})
		}

		if end == len(runes) {
			break
		}
		next := end - s.Overlap
		if next <= start {
			// Holds even for a Segmenter built without New.
			next = end
		}
		start = next
	}
	return out
}

// lastIndexRunes finds the rune offset of the last occurrence of sep within
// runes[start:end), or -1.
func lastIndexRunes(runes []rune, sep string, start, end int) int {
	sepRunes := []rune(sep)
	for i := end - len(sepRunes); i >= start; i-- {
		match := true
		for j, r := range sepRunes {
			if runes[i+j] != r {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
