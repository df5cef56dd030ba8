package entity

// Page is one page worth of normalized text.
type Page struct {
	Number int    `json:"page_number"`
	Text   string `json:"text"`
}

// RawDocument is an ingested file. Immutable after ingestion and never persisted.
type RawDocument struct {
	Filename       string `json:"filename"`
	Bytes          []byte `json:"-"`
	ContentHash    string `json:"content_hash"`
	ByteSize       int64  `json:"byte_size"`
	PageCount      int    `json:"page_count"`
	NormalizedText string `json:"normalized_text"`
	Pages          []Page `json:"pages,omitempty"`
}
