package audit

// Entry is one line in the hash-chained JSONL audit trail.
// All fields are scalars (no map[string]any) to guarantee deterministic
// json.Marshal field order for reproducible line hashing.
type Entry struct {
	Timestamp string  `json:"ts"`
	Session   string  `json:"session"`
	Seq       uint64  `json:"seq"`
	Op        string  `json:"op"`
	Outcome   string  `json:"outcome"`
	Code      string  `json:"code,omitempty"`
	Digest    string  `json:"digest,omitempty"`
	Level     string  `json:"level,omitempty"`
	Zone      string  `json:"zone,omitempty"`
	Cost      float64 `json:"cost"`
	Context   string  `json:"context,omitempty"`
	PrevHash  string  `json:"prev_hash"`
}

// Outcome values recorded per entry.
const (
	OutcomePass = "pass"
	OutcomeFail = "fail"
)
