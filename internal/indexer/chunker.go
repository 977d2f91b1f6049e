package indexer

// Chunker splits text into overlapping rune windows.
type Chunker struct {
	// Size is the maximum chunk length in runes.
	Size int

	// Overlap is how many runes consecutive chunks share, preserving
	// context across chunk boundaries.
	Overlap int
}

// DefaultChunkSize and DefaultChunkOverlap match common embedding-friendly
// splitting parameters.
const (
	DefaultChunkSize    = 512
	DefaultChunkOverlap = 50
)

// NewChunker creates a Chunker, substituting defaults for non-positive
// size and clamping overlap below size.
func NewChunker(size, overlap int) Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap >= size {
		overlap = size - 1
	}
	return Chunker{Size: size, Overlap: overlap}
}

// Split divides text into chunks of at most Size runes, each overlapping
// the previous by Overlap runes. Whitespace-only input yields no chunks.
// Where possible, chunk boundaries back up to the last whitespace inside
// the window so words are not split.
func (c Chunker) Split(text string) []string {
	runes := []rune(text)
	if !hasContent(runes) {
		return nil
	}
	if len(runes) <= c.Size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + c.Size
		if end >= len(runes) {
			if hasContent(runes[start:]) {
				chunks = append(chunks, string(runes[start:]))
			}
			break
		}

		// Back up to a whitespace boundary when one exists in the
		// second half of the window so words are not split.
		cut := end
		for i := end; i > start+c.Size/2; i-- {
			if isSpace(runes[i-1]) {
				cut = i
				break
			}
		}

		if hasContent(runes[start:cut]) {
			chunks = append(chunks, string(runes[start:cut]))
		}

		next := cut - c.Overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks
}

func hasContent(runes []rune) bool {
	for _, r := range runes {
		if !isSpace(r) {
			return true
		}
	}
	return false
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
