package models

// RemoteSettings mirrors the settings resource of the assistant API.
// Pointer fields are omitted from updates when nil.
type RemoteSettings struct {
	APIKey                   *string `json:"api_key,omitempty"`
	Model                    *string `json:"model,omitempty"`
	UserName                 *string `json:"user_name,omitempty"`
	UserEmail                *string `json:"user_email,omitempty"`
	EnableVectorMemory       *bool   `json:"enable_vector_memory,omitempty"`
	EnableDocumentProcessing *bool   `json:"enable_document_processing,omitempty"`
	MaxMemoryItems           *int    `json:"max_memory_items,omitempty"`
}
