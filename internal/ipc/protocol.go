package ipc

// Commands understood by the running engine.
const (
	CommandStatus   = "status"
	CommandListen   = "listen"
	CommandWake     = "wake"
	CommandSpeak    = "speak"
	CommandAwaiting = "awaiting"
	CommandStop     = "stop"
	CommandCancel   = "cancel"
	CommandEvents   = "events"
)

// Request is one newline-delimited JSON command. Text carries the speak
// payload and Value the awaiting flag.
type Request struct {
	Command string `json:"command"`
	Text    string `json:"text,omitempty"`
	Value   *bool  `json:"value,omitempty"`
}

type Response struct {
	OK      bool              `json:"ok"`
	State   string            `json:"state,omitempty"`
	Message string            `json:"message,omitempty"`
	Error   string            `json:"error,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}
