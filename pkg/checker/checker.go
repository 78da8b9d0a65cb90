// Package checker verifies the delivery sequences of a set of nodes satisfy
// total order.
package checker

import (
	"fmt"
	"sort"

	"github.com/andydunstall/epto/pkg/epto"
)

type ViolationKind string

const (
	// ViolationDuplicate is an event delivered more than once by a node.
	ViolationDuplicate ViolationKind = "duplicate"
	// ViolationTimestamp is an event delivered with a lower timestamp than
	// the previous event delivered by the node.
	ViolationTimestamp ViolationKind = "timestamp"
	// ViolationOrder is a pair of events delivered by two nodes in
	// different relative order.
	ViolationOrder ViolationKind = "order"
)

type Violation struct {
	Kind ViolationKind `json:"kind" yaml:"kind"`

	Nodes []string `json:"nodes" yaml:"nodes"`

	Events []epto.EventID `json:"events" yaml:"events"`
}

func (v Violation) String() string {
	switch v.Kind {
	case ViolationOrder:
		return fmt.Sprintf(
			"order: %s delivered %s before %s; %s delivered the reverse",
			v.Nodes[0], v.Events[0], v.Events[1], v.Nodes[1],
		)
	case ViolationTimestamp:
		return fmt.Sprintf(
			"timestamp: %s delivered %s after %s with a lower timestamp",
			v.Nodes[0], v.Events[1], v.Events[0],
		)
	default:
		return fmt.Sprintf(
			"%s: %s delivered %s", v.Kind, v.Nodes[0], v.Events[0],
		)
	}
}

type NodeSummary struct {
	ID        string `json:"id" yaml:"id"`
	Delivered int    `json:"delivered" yaml:"delivered"`
}

type Report struct {
	Nodes []NodeSummary `json:"nodes" yaml:"nodes"`

	// Common is the number of events delivered by every node.
	Common int `json:"common" yaml:"common"`

	Violations []Violation `json:"violations,omitempty" yaml:"violations,omitempty"`
}

func (r *Report) OK() bool {
	return len(r.Violations) == 0
}

// Check verifies the given delivery sequences, keyed by node ID.
//
// Nodes may deliver different subsets of events, such as a node that joined
// late or crashed, so the relative order is only compared for events both
// nodes delivered.
func Check(sequences map[string][]Record) *Report {
	var nodes []string
	for node := range sequences {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)

	report := &Report{}
	indexes := make(map[string]map[epto.EventID]int)
	for _, node := range nodes {
		seq := sequences[node]
		report.Nodes = append(report.Nodes, NodeSummary{
			ID:        node,
			Delivered: len(seq),
		})
		report.Violations = append(report.Violations, checkNode(node, seq)...)

		index := make(map[epto.EventID]int, len(seq))
		for i, r := range seq {
			if _, ok := index[r.EventID()]; !ok {
				index[r.EventID()] = i
			}
		}
		indexes[node] = index
	}

	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			v, ok := checkPair(
				nodes[i], sequences[nodes[i]],
				nodes[j], indexes[nodes[j]],
			)
			if ok {
				continue
			}
			report.Violations = append(report.Violations, v)
		}
	}

	report.Common = countCommon(nodes, indexes)
	return report
}

func checkNode(node string, seq []Record) []Violation {
	var violations []Violation
	seen := make(map[epto.EventID]struct{}, len(seq))
	for i, r := range seq {
		id := r.EventID()
		if _, ok := seen[id]; ok {
			violations = append(violations, Violation{
				Kind:   ViolationDuplicate,
				Nodes:  []string{node},
				Events: []epto.EventID{id},
			})
		}
		seen[id] = struct{}{}

		if i > 0 && r.Timestamp < seq[i-1].Timestamp {
			violations = append(violations, Violation{
				Kind:   ViolationTimestamp,
				Nodes:  []string{node},
				Events: []epto.EventID{seq[i-1].EventID(), id},
			})
		}
	}
	return violations
}

// checkPair returns the first pair of events node1 delivered in a different
// order to node2.
func checkPair(
	node1 string,
	seq1 []Record,
	node2 string,
	index2 map[epto.EventID]int,
) (Violation, bool) {
	var prev epto.EventID
	prevIndex := -1
	for _, r := range seq1 {
		id := r.EventID()
		index, ok := index2[id]
		if !ok {
			continue
		}
		if index < prevIndex {
			return Violation{
				Kind:   ViolationOrder,
				Nodes:  []string{node1, node2},
				Events: []epto.EventID{prev, id},
			}, false
		}
		if index > prevIndex {
			prev = id
			prevIndex = index
		}
	}
	return Violation{}, true
}

func countCommon(nodes []string, indexes map[string]map[epto.EventID]int) int {
	if len(nodes) == 0 {
		return 0
	}
	common := 0
	for id := range indexes[nodes[0]] {
		all := true
		for _, node := range nodes[1:] {
			if _, ok := indexes[node][id]; !ok {
				all = false
				break
			}
		}
		if all {
			common++
		}
	}
	return common
}
