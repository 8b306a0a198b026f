package store

// Document is an uploaded document. HasEmbedding flips to true once the
// ingest pipeline has chunked and embedded the content; only embedded
// documents are selectable for grounded chat.
type Document struct {
	UID           string
	Title         string
	ContentType   string
	Summary       *string
	FileSizeBytes int64
	WordCount     int32
	HasEmbedding  bool
	CreatedTs     int64
	UpdatedTs     int64
	ID            int32
	CreatorID     int32
}

type FindDocument struct {
	ID           *int32
	UID          *string
	CreatorID    *int32
	HasEmbedding *bool
}

type UpdateDocument struct {
	Summary      *string
	HasEmbedding *bool
	WordCount    *int32
	UpdatedTs    *int64
	ID           int32
}

type DeleteDocument struct {
	ID int32
}
