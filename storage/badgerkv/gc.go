package badgerkv

import (
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// gcRunner runs periodic value log garbage collection.
type gcRunner struct {
	db     *badger.DB
	ratio  float64
	log    *zap.Logger
	stopCh chan struct{}
	doneCh chan struct{}
}

func startGC(db *badger.DB, interval time.Duration, ratio float64, log *zap.Logger) *gcRunner {
	r := &gcRunner{
		db:     db,
		ratio:  ratio,
		log:    log,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go r.run(interval)
	return r
}

func (r *gcRunner) stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *gcRunner) run(interval time.Duration) {
	defer close(r.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			// ErrNoRewrite means nothing was worth collecting.
			err := r.db.RunValueLogGC(r.ratio)
			switch {
			case err == nil:
				r.log.Debug("badger value log GC completed")
			case !errors.Is(err, badger.ErrNoRewrite):
				r.log.Warn("badger value log GC error", zap.Error(err))
			}
		}
	}
}
