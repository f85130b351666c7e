package state

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper periodically purges idle conversation state on a cron schedule.
type Sweeper struct {
	store     *Store
	retention time.Duration
	cron      *cron.Cron
}

// NewSweeper creates a Sweeper that removes conversations idle longer than
// retention, checked on the given cron schedule (e.g. "@hourly").
func NewSweeper(store *Store, retention time.Duration, schedule string) (*Sweeper, error) {
	s := &Sweeper{
		store:     store,
		retention: retention,
		cron:      cron.New(),
	}
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins the sweep schedule in the background.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule. A sweep already in flight runs to completion.
func (s *Sweeper) Stop() {
	s.cron.Stop()
}

func (s *Sweeper) sweep() {
	n, err := s.store.PurgeIdle(s.retention)
	if err != nil {
		log.Printf("state: purging idle conversations: %v", err)
		return
	}
	if n > 0 {
		log.Printf("state: purged %d idle conversations", n)
	}
}
