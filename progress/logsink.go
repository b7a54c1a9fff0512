package progress

import (
	log "github.com/sirupsen/logrus"
)

// LogSink renders the event stream as a live log via logrus. It is one of
// two bundled consumers; the other is the aggregate Tracker. Both can be
// attached to the same stream with Multi().
type LogSink struct{}

func (LogSink) OnEvent(ev Event) {
	switch ev.State {
	case InFlight:
		log.Debugf("downloading asset: album=%s index=%d", ev.AlbumID, ev.Index)
	case Done:
		log.Infof("downloaded asset: album=%s index=%d bytes=%d", ev.AlbumID, ev.Index, ev.Bytes)
	case Errored:
		log.WithError(ev.Err).Errorf("failed to download asset: album=%s index=%d", ev.AlbumID, ev.Index)
	case Skipped:
		log.Debugf("skipping asset: album=%s index=%d", ev.AlbumID, ev.Index)
	}
}
