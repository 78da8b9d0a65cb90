// Package epto implements EpTO, an epidemic total order broadcast.
//
// Each node stamps broadcast events with a logical clock and relays them in
// 'balls' to a random subset of peers each round. An event is forwarded for
// MaxTTL rounds. Every round the node passes the events it has seen to its
// Orderer, which delivers an event once it is older than MaxTTL rounds and no
// event with a lower timestamp may still arrive, in (timestamp, source)
// order.
//
// Disseminator and Orderer are not safe for concurrent use. They are driven
// by a single goroutine owned by the node.
package epto
