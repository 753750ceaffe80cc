package server

import (
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/npezzotti/go-codeduel/internal/database"
)

// Janitor periodically deletes rooms whose time-to-live has passed, whatever
// state their battle is in.
type Janitor struct {
	log       *log.Logger
	db        database.BattleRepository
	now       func() time.Time
	scheduler gocron.Scheduler
}

func NewJanitor(logger *log.Logger, db database.BattleRepository, interval time.Duration) (*Janitor, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("new scheduler: %w", err)
	}

	j := &Janitor{
		log:       logger,
		db:        db,
		now:       time.Now,
		scheduler: s,
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(j.sweep),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule sweep: %w", err)
	}

	return j, nil
}

func (j *Janitor) Start() {
	j.log.Println("starting room janitor")
	j.scheduler.Start()
}

func (j *Janitor) Shutdown() error {
	return j.scheduler.Shutdown()
}

func (j *Janitor) sweep() {
	n, err := j.db.DeleteExpiredRooms(j.now().UTC())
	if err != nil {
		j.log.Println("DeleteExpiredRooms:", err)
		return
	}
	if n > 0 {
		j.log.Printf("janitor removed %d expired rooms", n)
	}
}
