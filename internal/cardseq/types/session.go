package types

type State string

const (
	StateInitial   State = "INITIAL"
	StateActive    State = "ACTIVE"
	StateExhausted State = "EXHAUSTED"
	StateHalted    State = "HALTED"
)

// Snapshot is the read-only view of a session exposed over the API.
type Snapshot struct {
	SessionID     string `json:"session_id,omitempty"`
	SequenceID    string `json:"sequence_id,omitempty"`
	SourcePath    string `json:"source_path,omitempty"`
	State         State  `json:"state"`
	Cursor        int    `json:"cursor"`
	Length        int    `json:"length"`
	CurrentCode   string `json:"current_code"`
	CurrentID     string `json:"current_identifier,omitempty"`
	NextCode      string `json:"next_code"`
	NextID        string `json:"next_identifier,omitempty"`
	LogLength     int    `json:"log_length"`
	LastMessage   string `json:"last_message,omitempty"`
	LastError     string `json:"last_error,omitempty"`
	Listening     bool   `json:"listening"`
	ListeningPort string `json:"listening_port,omitempty"`
	ServerTime    string `json:"server_time"`
}

// ScanRequest is manual scanner input.
type ScanRequest struct {
	Code string `json:"code"`
}

type ScanResponse struct {
	Entries  []LogEntry `json:"entries"`
	Snapshot Snapshot   `json:"snapshot"`
}

type LoadSequenceRequest struct {
	Path string `json:"path"`
}

// CursorRequest selects the start card either by position or by NUMCARD.
type CursorRequest struct {
	Index      *int   `json:"index,omitempty"`
	Identifier string `json:"identifier,omitempty"`
}

type ListenRequest struct {
	Port     string `json:"port"`
	BaudRate int    `json:"baud_rate,omitempty"`
}

type LogResponse struct {
	SessionID string     `json:"session_id"`
	Entries   []LogEntry `json:"entries"`
}

type PortsResponse struct {
	Ports []string `json:"ports"`
}

type CardsResponse struct {
	SequenceID string         `json:"sequence_id"`
	Cards      []ExpectedCard `json:"cards"`
}
