package models

// Memory is one entry of the assistant's knowledge store.
type Memory struct {
	ID        string   `json:"id"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags"`
	CreatedAt string   `json:"created_at,omitempty"`
	Score     float64  `json:"score,omitempty"`
}

// MemoryInput is the payload used to create or update a memory.
type MemoryInput struct {
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}
