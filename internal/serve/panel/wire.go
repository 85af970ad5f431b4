package panel

// Inbound is the JSON envelope sent panel->bridge. Only "chat" is acted on;
// any other command is ignored.
type Inbound struct {
	Command string `json:"command"`

	// chat
	Text      string `json:"text,omitempty"`
	Model     string `json:"model,omitempty"`    // provider tag: local, gemini, host
	ModelKey  string `json:"modelKey,omitempty"` // registry key within the provider
	MediaData string `json:"mediaData,omitempty"`
	MediaType string `json:"mediaType,omitempty"`
}

// Outbound is the JSON envelope sent bridge->panel.
type Outbound struct {
	Command   string `json:"command"` // chatResponse or error
	Text      string `json:"text"`
	MediaType string `json:"mediaType,omitempty"`
}

const (
	CommandChat     = "chat"
	CommandResponse = "chatResponse"
	CommandError    = "error"
)
