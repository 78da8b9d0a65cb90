package cyclon

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/andydunstall/epto/pkg/log"
	"github.com/andydunstall/epto/pkg/rng"
)

// ShuffleRequest is sent to the oldest peer in the view to start a shuffle.
type ShuffleRequest struct {
	// ID identifies the shuffle so the reply can be matched.
	ID uint64 `json:"id" codec:"id"`

	Sender Peer `json:"sender" codec:"sender"`

	// Sample contains entries from the senders view, including the sender
	// itself with age 0.
	Sample []Entry `json:"sample" codec:"sample"`
}

// ShuffleReply is the response to a ShuffleRequest.
type ShuffleReply struct {
	// ID is the ID of the request being replied to.
	ID uint64 `json:"id" codec:"id"`

	Sender Peer `json:"sender" codec:"sender"`

	// Sample contains entries from the senders view.
	Sample []Entry `json:"sample" codec:"sample"`
}

// PendingShuffle is a shuffle request that hasn't yet been replied to.
type PendingShuffle struct {
	ID uint64 `json:"id"`

	Target Peer `json:"target"`

	// Sample is the set of entries sent, with the target rather than the
	// local node. These entries are replaced first when merging the reply.
	Sample []Entry `json:"sample"`
}

// Cyclon maintains the nodes view.
type Cyclon struct {
	self Peer

	sampleSize int

	view *View

	// pending is the outstanding shuffle, or nil if there is no outstanding
	// shuffle.
	pending *PendingShuffle

	// lastID is the ID of the last shuffle request.
	lastID uint64

	rnd rng.Source

	watcher Watcher

	metrics *Metrics

	logger log.Logger
}

func New(
	self Peer,
	conf *Config,
	rnd rng.Source,
	watcher Watcher,
	metrics *Metrics,
	logger log.Logger,
) *Cyclon {
	if watcher == nil {
		watcher = NewNopWatcher()
	}
	return &Cyclon{
		self:       self,
		sampleSize: conf.ShuffleSampleSize,
		view:       NewView(conf.ViewCapacity),
		rnd:        rnd,
		watcher:    watcher,
		metrics:    metrics,
		logger:     logger.WithSubsystem("cyclon"),
	}
}

// Join adds the given hint to the view, if the view has space. Returns false
// if the peer was not added.
func (c *Cyclon) Join(hint Peer) bool {
	if hint.ID == c.self.ID {
		return false
	}
	if !c.view.Add(Entry{Peer: hint}) {
		return false
	}
	c.onAdd(hint)
	return true
}

// Shuffle starts a new shuffle. It returns the request to send and the peer
// to send it to, or false if the view is empty.
//
// If the previous shuffle is still pending, its target is assumed to have
// failed and is removed from the view.
func (c *Cyclon) Shuffle() (Peer, *ShuffleRequest, bool) {
	if c.pending != nil {
		target := c.pending.Target
		if c.view.Remove(target.ID) {
			c.metrics.ShuffleTimeouts.Inc()
			c.metrics.ViewSize.Set(float64(c.view.Len()))
			c.watcher.OnTimeout(target)

			c.logger.Debug(
				"shuffle timed out; removed peer",
				zap.String("peer", target.ID),
				zap.Uint64("shuffle-id", c.pending.ID),
			)
		}
		c.pending = nil
	}

	c.view.IncrementAge()

	oldest, ok := c.view.Oldest()
	if !ok {
		return Peer{}, nil, false
	}

	sample := c.view.Sample(c.rnd, c.sampleSize-1, oldest.Peer.ID)

	reqSample := make([]Entry, 0, len(sample)+1)
	reqSample = append(reqSample, sample...)
	reqSample = append(reqSample, Entry{Peer: c.self, Age: 0})

	pendingSample := make([]Entry, 0, len(sample)+1)
	pendingSample = append(pendingSample, sample...)
	pendingSample = append(pendingSample, oldest)

	c.lastID++
	c.pending = &PendingShuffle{
		ID:     c.lastID,
		Target: oldest.Peer,
		Sample: pendingSample,
	}

	c.metrics.ShufflesOutbound.Inc()

	c.logger.Debug(
		"shuffle",
		zap.String("peer", oldest.Peer.ID),
		zap.Uint64("shuffle-id", c.lastID),
		zap.Int("sample", len(reqSample)),
	)

	return oldest.Peer, &ShuffleRequest{
		ID:     c.lastID,
		Sender: c.self,
		Sample: reqSample,
	}, true
}

// HandleRequest handles a shuffle request from another peer and returns the
// reply to send.
func (c *Cyclon) HandleRequest(req *ShuffleRequest) *ShuffleReply {
	c.metrics.ShuffleRequestsInbound.Inc()

	sample := c.view.Sample(c.rnd, c.sampleSize, "")
	c.merge(req.Sample, sample)

	return &ShuffleReply{
		ID:     req.ID,
		Sender: c.self,
		Sample: sample,
	}
}

// HandleReply handles a reply to a shuffle request.
//
// If the reply is for the pending shuffle, the received entries replace the
// entries that were sent. Otherwise the reply is stale (such as it arrived
// after the shuffle timed out) and entries are only added if there is space.
func (c *Cyclon) HandleReply(reply *ShuffleReply) {
	if c.pending == nil || c.pending.ID != reply.ID {
		c.metrics.ShuffleRepliesInbound.With(
			prometheus.Labels{"stale": "true"},
		).Inc()
		c.logger.Debug(
			"stale shuffle reply",
			zap.String("peer", reply.Sender.ID),
			zap.Uint64("shuffle-id", reply.ID),
		)

		c.merge(reply.Sample, nil)
		return
	}

	c.metrics.ShuffleRepliesInbound.With(
		prometheus.Labels{"stale": "false"},
	).Inc()

	c.merge(reply.Sample, c.pending.Sample)
	c.pending = nil
}

// SelectPeers returns up to n random peers from the view.
func (c *Cyclon) SelectPeers(n int) []Peer {
	entries := c.view.Sample(c.rnd, n, "")
	peers := make([]Peer, 0, len(entries))
	for _, e := range entries {
		peers = append(peers, e.Peer)
	}
	return peers
}

// Entries returns a copy of the view.
func (c *Cyclon) Entries() []Entry {
	return c.view.Entries()
}

// Pending returns the outstanding shuffle, or nil if there is none.
func (c *Cyclon) Pending() *PendingShuffle {
	if c.pending == nil {
		return nil
	}
	pending := *c.pending
	pending.Sample = append([]Entry(nil), c.pending.Sample...)
	return &pending
}

// merge adds the received entries to the view.
//
// Entries for the local node or peers already in the view are ignored. If
// the view is full, each new entry replaces the next unused candidate. Once
// the candidates run out, or the next candidate is no longer in the view,
// the remaining received entries are dropped.
func (c *Cyclon) merge(received []Entry, candidates []Entry) {
	next := 0
	for i, e := range received {
		if e.Peer.ID == c.self.ID || c.view.Contains(e.Peer.ID) {
			continue
		}

		if !c.view.Full() {
			c.view.Add(e)
			c.onAdd(e.Peer)
			continue
		}

		if next < len(candidates) {
			candidate := candidates[next].Peer
			if c.view.Replace(candidate.ID, e) {
				next++
				c.metrics.EntriesEvicted.Inc()
				c.watcher.OnEvict(candidate)
				c.onAdd(e.Peer)
				continue
			}
		}

		dropped := c.countUnknown(received[i:])
		c.metrics.EntriesDropped.Add(float64(dropped))
		c.logger.Debug(
			"no candidate to replace; dropping entries",
			zap.Int("dropped", dropped),
		)
		return
	}
}

func (c *Cyclon) countUnknown(entries []Entry) int {
	n := 0
	for _, e := range entries {
		if e.Peer.ID != c.self.ID && !c.view.Contains(e.Peer.ID) {
			n++
		}
	}
	return n
}

func (c *Cyclon) onAdd(peer Peer) {
	c.metrics.EntriesAdded.Inc()
	c.metrics.ViewSize.Set(float64(c.view.Len()))
	c.watcher.OnAdd(peer)
}
