// Package chunker splits cleaned document text into overlapping fixed-size
// segments with sentence boundary snapping.
package chunker

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/clariq-health/docqa/internal/domain"
)

const (
	// DefaultSize is the chunk window size in characters.
	DefaultSize = 1000
	// DefaultOverlap is the overlap between consecutive chunks in characters.
	DefaultOverlap = 200
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	// Word characters, accented letters (covers the Latin Extended Additional
	// range used by Vietnamese), and basic punctuation survive cleaning.
	unsafeRe = regexp.MustCompile(`[^\w\s\x{00C0}-\x{1EF9}.,;:!?()-]`)
)

// Chunker splits text into overlapping windows snapped to sentence boundaries.
// Stateless and safe for concurrent use.
type Chunker struct {
	size    int
	overlap int
}

// New creates a chunker. Non-positive size or overlap fall back to defaults.
// Overlap is capped below half the window: boundary snapping can pull a
// chunk's end back to start+size/2+1, so any larger overlap would let the
// next window start at or before the current one.
func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if overlap*2 >= size {
		overlap = size / 5
	}
	return &Chunker{size: size, overlap: overlap}
}

// Clean normalizes whitespace and strips characters outside the safe set.
// All newlines collapse to single spaces.
func (c *Chunker) Clean(text string) string {
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = unsafeRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// Chunk cleans text and splits it into overlapping chunks. Each chunk carries
// the base metadata plus its sequence index and character offsets into the
// cleaned text. Empty input yields no chunks; text shorter than the window
// yields exactly one chunk spanning the whole text.
func (c *Chunker) Chunk(text string, base map[string]string) []domain.Chunk {
	cleaned := []rune(c.Clean(text))
	if len(cleaned) == 0 {
		return nil
	}

	var chunks []domain.Chunk
	start := 0
	seq := 0

	for start < len(cleaned) {
		end := start + c.size

		// Snap the boundary back to the nearest sentence-terminating period,
		// unless that would shrink the chunk below half the window.
		if end < len(cleaned) {
			if p := lastPeriod(cleaned, start, end); p > start+c.size/2 {
				end = p + 1
			}
		}

		sliceEnd := min(end, len(cleaned))
		chunkText := strings.TrimSpace(string(cleaned[start:sliceEnd]))

		if chunkText != "" {
			meta := make(map[string]string, len(base)+3)
			for k, v := range base {
				meta[k] = v
			}
			meta[domain.MetaChunkID] = strconv.Itoa(seq)
			meta[domain.MetaStartChar] = strconv.Itoa(start)
			meta[domain.MetaEndChar] = strconv.Itoa(sliceEnd)

			chunks = append(chunks, domain.Chunk{
				Text:      chunkText,
				Sequence:  seq,
				StartChar: start,
				EndChar:   sliceEnd,
				Metadata:  meta,
			})
			seq++
		}

		// overlap < size/2 and a snapped end stays above start+size/2,
		// so start always advances.
		start = end - c.overlap
	}

	return chunks
}

// lastPeriod returns the index of the last '.' in cleaned[from:to], or -1.
func lastPeriod(cleaned []rune, from, to int) int {
	for i := to - 1; i >= from; i-- {
		if cleaned[i] == '.' {
			return i
		}
	}
	return -1
}
