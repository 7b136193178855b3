package audit

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// GenesisHash is the prev_hash for the first entry in a new audit trail.
const GenesisHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

// Log is an append-only JSONL audit trail with SHA-256 hash chaining.
// Each entry's prev_hash is the hash of the previous entry's JSON line,
// forming a tamper-evident chain. Sequence numbers are monotonic across
// reopens; the session ID is fixed per Open so interleaved process runs
// stay attributable.
type Log struct {
	path     string
	session  string
	mu       sync.Mutex
	file     *os.File
	prevHash string
	seq      uint64
	closed   bool
}

// Open opens (or creates) an audit trail for appending. An existing
// file is read to recover the chain tail and the last sequence number.
func Open(path string) (*Log, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("audit: create directory: %w", err)
	}

	prevHash := GenesisHash
	var seq uint64

	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("audit: read existing trail: %w", err)
		}
		scanner := bufio.NewScanner(f)
		var lastLine []byte
		for scanner.Scan() {
			lastLine = make([]byte, len(scanner.Bytes()))
			copy(lastLine, scanner.Bytes())
		}
		f.Close()
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("audit: scan existing trail: %w", err)
		}
		if len(lastLine) > 0 {
			prevHash = HashLine(lastLine)
			var last Entry
			if err := json.Unmarshal(lastLine, &last); err != nil {
				return nil, fmt.Errorf("audit: parse chain tail: %w", err)
			}
			seq = last.Seq
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("audit: open file: %w", err)
	}

	return &Log{
		path:     path,
		session:  newSessionID(),
		file:     file,
		prevHash: prevHash,
		seq:      seq,
	}, nil
}

// Path returns the file the trail appends to.
func (l *Log) Path() string { return l.path }

// Session returns the session ID stamped on entries from this handle.
func (l *Log) Session() string { return l.session }

// Record appends an entry with hash chaining. It assigns the sequence
// number, session, PrevHash, and Timestamp (if empty), writes the JSON
// line, and syncs to disk.
func (l *Log) Record(entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return fmt.Errorf("audit: record on closed trail")
	}

	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	}
	entry.Session = l.session
	entry.Seq = l.seq + 1
	entry.PrevHash = l.prevHash

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("audit: marshal entry: %w", err)
	}

	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("audit: write entry: %w", err)
	}

	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("audit: sync: %w", err)
	}

	l.prevHash = HashLine(line)
	l.seq = entry.Seq
	return nil
}

// Close flushes and closes the underlying file. Idempotent.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}

func newSessionID() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("bg-%x", time.Now().UnixNano())
	}
	return "bg-" + hex.EncodeToString(b)
}
