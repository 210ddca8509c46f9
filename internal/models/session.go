package models

import "time"

// SessionMeta summarizes one session JSONL file. It holds only fields
// computed during the metadata scan; full message content is loaded
// lazily via parse.SessionMessages and never stored here.
type SessionMeta struct {
	ID         string    `json:"id"`
	ShortID    string    `json:"short_id"`
	Project    string    `json:"project"`
	CWD        string    `json:"cwd"`
	Path       string    `json:"path"`
	Summary    string    `json:"summary"`
	StartedAt  time.Time `json:"started_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Lines      int       `json:"lines"`
	UserMsgs   int       `json:"user_msgs"`
	AgentMsgs  int       `json:"agent_msgs"`
	Models     []string  `json:"models,omitempty"`
	InputToks  int64     `json:"input_tokens"`
	OutputToks int64     `json:"output_tokens"`

	// ScanOffset is the byte position the metadata scan consumed up
	// to, so appends to the file resume where the last scan stopped.
	ScanOffset int64 `json:"scan_offset"`
	// ScanLines is the file line the scan stopped at, counting blank
	// and malformed lines too, so resumed failure records still carry
	// real file positions. Lines counts only well-formed records.
	ScanLines int `json:"scan_lines"`
}

func (s *SessionMeta) EntityID() string   { return s.ID }
func (s *SessionMeta) EntityKind() Kind   { return KindSession }
func (s *SessionMeta) SourcePath() string { return s.Path }

// ShortID renders a session UUID as first4..last4 for display.
func ShortID(id string) string {
	if len(id) < 9 {
		return id
	}
	return id[:4] + ".." + id[len(id)-4:]
}

// Message is one conversation turn, loaded on demand for a single
// session. Messages are never cached beyond the request that needed
// them.
type Message struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Model     string    `json:"model,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
	Index     int       `json:"index"`
}
