package checker

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/andydunstall/epto/pkg/epto"
)

// Record is a delivered event on a node.
type Record struct {
	Node      string      `json:"node" yaml:"node"`
	Source    string      `json:"source" yaml:"source"`
	Seq       uint64      `json:"seq" yaml:"seq"`
	Timestamp uint64      `json:"timestamp" yaml:"timestamp"`
	Action    epto.Action `json:"action" yaml:"action"`
}

func NewRecord(node string, e epto.Event) Record {
	return Record{
		Node:      node,
		Source:    e.ID.Source,
		Seq:       e.ID.Seq,
		Timestamp: e.Timestamp,
		Action:    e.Action,
	}
}

func (r Record) EventID() epto.EventID {
	return epto.EventID{Source: r.Source, Seq: r.Seq}
}

// Log writes delivered events as one JSON object per line.
//
// Log is safe to use from multiple goroutines.
type Log struct {
	encoder *json.Encoder

	// mu protects encoder.
	mu sync.Mutex
}

func NewLog(w io.Writer) *Log {
	return &Log{
		encoder: json.NewEncoder(w),
	}
}

// Write appends an event delivered on the given node.
func (l *Log) Write(node string, e epto.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.encoder.Encode(NewRecord(node, e))
}

// ReadLog reads the records written by Log, in order.
func ReadLog(r io.Reader) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}

		var record Record
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// GroupByNode returns the delivered event sequence for each node, keeping the
// order of the records.
func GroupByNode(records []Record) map[string][]Record {
	sequences := make(map[string][]Record)
	for _, r := range records {
		sequences[r.Node] = append(sequences[r.Node], r)
	}
	return sequences
}
