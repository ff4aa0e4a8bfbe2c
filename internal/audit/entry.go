package audit

import "time"

// Origins recorded in Entry.Origin.
const (
	OriginREPL   = "repl"
	OriginServer = "server"
	OriginMCP    = "mcp"
)

// Entry is one line of the audit log.
type Entry struct {
	Seq      uint64    `json:"seq"`
	Time     time.Time `json:"ts"`
	PrevHash string    `json:"prev_hash"`
	Line     string    `json:"line"`
	Stages   []string  `json:"stages"`           // program name per stage
	ExitCode int       `json:"exit_code"`        // legacy integer status, -1 on orchestration failure
	Signal   string    `json:"signal,omitempty"` // set when the last stage was killed
	Error    string    `json:"error,omitempty"`
	Duration float64   `json:"duration_ms"`
	Cwd      string    `json:"cwd"`
	Origin   string    `json:"origin"`
	Remote   string    `json:"remote,omitempty"` // peer address for server sessions
	Hash     string    `json:"hash"`             // SHA-256 of this entry with Hash empty
}

// Record is what a caller reports about one executed line. The logger fills
// in sequencing and chaining.
type Record struct {
	Line     string
	Stages   []string
	ExitCode int
	Signal   string
	Err      error
	Duration time.Duration
	Cwd      string
	Origin   string
	Remote   string
}
