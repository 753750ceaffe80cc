package types

import (
	"time"
)

type User struct {
	Id       int    `json:"id"`
	Username string `json:"username"`
}

type Player struct {
	Id       int    `json:"id"`
	Username string `json:"username"`
	Rating   int    `json:"rating"`
	Tier     string `json:"tier"`
	Score    int    `json:"score"`
	IsHost   bool   `json:"is_host"`
}

type RecentLeave struct {
	UserId    int       `json:"user_id"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

type Room struct {
	Code               string       `json:"code"`
	Mode               string       `json:"mode"`
	CreatedBy          int          `json:"created_by"`
	IsHost             bool         `json:"is_host"`
	Participants       []Player     `json:"participants"`
	BattleStarted      bool         `json:"battle_started"`
	QuestionId         *int         `json:"question_id"`
	Scores             map[int]int  `json:"scores"`
	QuestionsCompleted int          `json:"questions_completed"`
	SessionEnded       bool         `json:"session_ended"`
	TimerStartedAt     *time.Time   `json:"timer_started_at"`
	TimerDurationMs    int64        `json:"timer_duration_ms"`
	TimeRemainingMs    int64        `json:"time_remaining_ms"`
	RecentLeave        *RecentLeave `json:"recent_leave"`
	CreatedAt          time.Time    `json:"created_at"`
	ExpiresAt          time.Time    `json:"expires_at"`
}

type RoomSummary struct {
	Code          string    `json:"code"`
	Mode          string    `json:"mode"`
	IsHost        bool      `json:"is_host"`
	Participants  int       `json:"participants"`
	BattleStarted bool      `json:"battle_started"`
	SessionEnded  bool      `json:"session_ended"`
	CreatedAt     time.Time `json:"created_at"`
}

type CreateRoomResponse struct {
	Code string `json:"code"`
}

type JoinRoomResponse struct {
	Code         string   `json:"code"`
	Participants []Player `json:"participants"`
}

type LeaveRoomResponse struct {
	RoomDeleted  bool  `json:"room_deleted"`
	NewHost      *int  `json:"new_host,omitempty"`
	SessionEnded bool  `json:"session_ended"`
	Winner       *User `json:"winner,omitempty"`
}

type StartBattleResponse struct {
	QuestionId     int       `json:"question_id"`
	TimerStartedAt time.Time `json:"timer_started_at"`
}

type SubmitResponse struct {
	Accepted           bool        `json:"accepted"`
	PointsAwarded      int         `json:"points_awarded"`
	Score              int         `json:"score"`
	QuestionsCompleted int         `json:"questions_completed"`
	QuestionChanged    bool        `json:"question_changed"`
	NewQuestionId      *int        `json:"new_question_id,omitempty"`
	SessionEnded       bool        `json:"session_ended"`
	TimeExpired        bool        `json:"time_expired"`
	FinalScores        map[int]int `json:"final_scores,omitempty"`
}

type Opponent struct {
	Id       int    `json:"id"`
	Username string `json:"username"`
	Rating   int    `json:"rating"`
	Tier     string `json:"tier"`
}

type QueueResponse struct {
	Status        string    `json:"status"`
	InQueue       bool      `json:"in_queue"`
	Matched       bool      `json:"matched"`
	AlreadyQueued bool      `json:"already_queued,omitempty"`
	RoomCode      string    `json:"room_code,omitempty"`
	Opponent      *Opponent `json:"opponent,omitempty"`
	QueuePosition int       `json:"queue_position,omitempty"`
	QueueSize     int       `json:"queue_size,omitempty"`
	WaitSeconds   int       `json:"wait_seconds,omitempty"`
}

type LeaveQueueResponse struct {
	Removed bool `json:"removed"`
}

type QueueStats struct {
	Size               int `json:"size"`
	PendingMatches     int `json:"pending_matches"`
	OldestWaitSeconds  int `json:"oldest_wait_seconds"`
	AverageWaitSeconds int `json:"average_wait_seconds"`
}

type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	Id            int    `json:"id"`
	Username      string `json:"username"`
	Rating        int    `json:"rating"`
	Tier          string `json:"tier"`
	BattlesFought int    `json:"battles_fought"`
}

type ExecuteResponse struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	Output   string `json:"output"`
	ExitCode int    `json:"exit_code"`
}
