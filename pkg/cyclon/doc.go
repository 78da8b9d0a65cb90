// Package cyclon implements Cyclon peer sampling.
//
// Each node maintains a small view of other peers, where each entry has an
// age counting the number of shuffle periods since it was added. Every
// shuffle period the node ages its view, selects its oldest peer and swaps a
// random sample of its view with that peer. This continuously mixes the
// views so each node has a random sample of the live peers in the cluster.
//
// The only failure detection is the shuffle timeout: if the oldest peer
// doesn't reply before the next shuffle, it is removed from the view.
//
// Cyclon is not safe for concurrent use. It is driven by a single goroutine
// owned by the node, so returns the messages to send rather than sending them
// itself.
package cyclon
