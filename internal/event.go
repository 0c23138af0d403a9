package internal

const (
	DocumentEventIndexed = "documents.event.indexed"
	DocumentEventBulk    = "documents.event.bulk"
	DocumentEventDeleted = "documents.event.deleted"
)

//DocumentEvent is published whenever a document write is requested, the indexers
//consume it and apply it to the index.
type DocumentEvent struct {
	Type      string     `json:"type"`
	Document  Document   `json:"document,omitempty"`
	Documents []Document `json:"documents,omitempty"`
	ID        string     `json:"id,omitempty"`
}
