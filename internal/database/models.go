package database

import (
	"slices"
	"time"
)

type RoomMode string

const (
	ModeCustom RoomMode = "custom"
	ModeAshes  RoomMode = "ashes"
)

// DefaultTimerDuration bounds a battle once it has started.
const DefaultTimerDuration = 30 * time.Minute

type Account struct {
	Id            int
	Username      string
	Rating        int
	BattlesFought int
	CreatedAt     time.Time
}

type RecentLeave struct {
	UserId    int       `json:"user_id"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

type Room struct {
	Code               string
	Mode               RoomMode
	CreatedBy          int
	Participants       []int
	BattleStarted      bool
	QuestionId         *int
	Scores             map[int]int
	QuestionsCompleted int
	SessionEnded       bool
	TimerStartedAt     *time.Time
	TimerDuration      time.Duration
	RecentLeave        *RecentLeave
	CreatedAt          time.Time
	ExpiresAt          time.Time
}

func (r *Room) HasParticipant(userId int) bool {
	return slices.Contains(r.Participants, userId)
}

// Deadline reports when the battle timer runs out. It is false until the
// battle has started.
func (r *Room) Deadline() (time.Time, bool) {
	if r.TimerStartedAt == nil {
		return time.Time{}, false
	}
	return r.TimerStartedAt.Add(r.TimerDuration), true
}

// TimerExpired reports whether the battle deadline has passed at now.
func (r *Room) TimerExpired(now time.Time) bool {
	deadline, ok := r.Deadline()
	return ok && !now.Before(deadline)
}

// FinalScores snapshots the score of every current participant.
func (r *Room) FinalScores() map[int]int {
	scores := make(map[int]int, len(r.Participants))
	for _, id := range r.Participants {
		scores[id] = r.Scores[id]
	}
	return scores
}

// Clone returns a deep copy so callers can mutate rooms without aliasing
// the stored value.
func (r Room) Clone() Room {
	c := r
	c.Participants = slices.Clone(r.Participants)
	if r.Scores != nil {
		c.Scores = make(map[int]int, len(r.Scores))
		for k, v := range r.Scores {
			c.Scores[k] = v
		}
	}
	if r.QuestionId != nil {
		id := *r.QuestionId
		c.QuestionId = &id
	}
	if r.TimerStartedAt != nil {
		ts := *r.TimerStartedAt
		c.TimerStartedAt = &ts
	}
	if r.RecentLeave != nil {
		rl := *r.RecentLeave
		c.RecentLeave = &rl
	}
	return c
}
