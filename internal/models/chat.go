package models

// ChatReply is the assistant's answer to a single chat message.
type ChatReply struct {
	Response string `json:"response"`
}

// StatusMessage is the generic acknowledgement returned by mutating endpoints.
type StatusMessage struct {
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}
