package vectordb

// Passage is an indexed chunk with its attribution metadata.
type Passage struct {
	ID           string
	DocumentID   string
	Version      int
	Seq          int
	PageStart    int
	PageEnd      int
	PropertyName string
	Text         string
}

// Hit pairs a passage with its similarity score.
type Hit struct {
	Passage    Passage
	Similarity float32
}

// Filter narrows search results by attribution metadata.
type Filter struct {
	DocumentID   string
	PropertyName string
}
