package model

// Chunk is a contiguous span of normalized document text produced by the
// chunker. Position is the chunk's ordinal within its source document.
type Chunk struct {
	Position int
	Text     string
}

// DocumentInfo describes an ingested document.
type DocumentInfo struct {
	Filename string `json:"filename"`
	Title    string `json:"title,omitempty"`
	Author   string `json:"author,omitempty"`
	Pages    int    `json:"pages"`
	Chunks   int    `json:"chunks"`
}
