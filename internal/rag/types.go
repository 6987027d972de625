package rag

// Evidence is one retrieved chunk supporting an answer, traced back to its
// source document.
type Evidence struct {
	Source string  `json:"source"`
	Offset int     `json:"offset"`
	Text   string  `json:"text"`
	Score  float32 `json:"score"`
}

// Answer is the result of one retrieval-augmented query.
type Answer struct {
	Text     string     `json:"answer"`
	Evidence []Evidence `json:"evidence"`
}
