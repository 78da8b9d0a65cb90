package server

import (
	"go.uber.org/zap"

	"github.com/andydunstall/epto/pkg/cyclon"
	"github.com/andydunstall/epto/pkg/log"
)

// membershipLogger logs changes to the nodes view.
type membershipLogger struct {
	logger log.Logger
}

func newMembershipLogger(logger log.Logger) *membershipLogger {
	return &membershipLogger{
		logger: logger.WithSubsystem("membership"),
	}
}

func (w *membershipLogger) OnAdd(peer cyclon.Peer) {
	w.logger.Info(
		"peer added",
		zap.String("peer-id", peer.ID),
		zap.String("peer-addr", peer.Addr),
	)
}

func (w *membershipLogger) OnEvict(peer cyclon.Peer) {
	w.logger.Debug(
		"peer evicted",
		zap.String("peer-id", peer.ID),
		zap.String("peer-addr", peer.Addr),
	)
}

func (w *membershipLogger) OnTimeout(peer cyclon.Peer) {
	w.logger.Warn(
		"peer timed out",
		zap.String("peer-id", peer.ID),
		zap.String("peer-addr", peer.Addr),
	)
}

var _ cyclon.Watcher = &membershipLogger{}
