package server

import (
	"context"

	"github.com/npezzotti/go-codeduel/internal/database"
	"github.com/npezzotti/go-codeduel/internal/questions"
)

// MaxQuestions is the number of solved questions that ends a session.
const MaxQuestions = 3

type SubmitResult struct {
	Accepted           bool
	PointsAwarded      int
	Score              int
	QuestionsCompleted int
	QuestionChanged    bool
	NewQuestionId      *int
	SessionEnded       bool
	TimeExpired        bool
	FinalScores        map[int]int
}

// CreateRoom opens a custom room with hostId as its only participant.
func (bs *BattleServer) CreateRoom(ctx context.Context, hostId int) (database.Room, error) {
	if _, err := bs.account(hostId); err != nil {
		return database.Room{}, err
	}

	room, err := bs.insertRoom(database.Room{
		Mode:         database.ModeCustom,
		CreatedBy:    hostId,
		Participants: []int{hostId},
		Scores:       map[int]int{},
	})
	if err != nil {
		return database.Room{}, err
	}

	bs.log.Printf("user %d created room %q", hostId, room.Code)
	return room, nil
}

// JoinRoom adds userId to the room. Joining a room the user already belongs
// to succeeds without changes.
func (bs *BattleServer) JoinRoom(ctx context.Context, code string, userId int) (database.Room, error) {
	var room database.Room
	err := bs.withRoom(ctx, code, func() error {
		var err error
		room, err = bs.loadRoom(code)
		if err != nil {
			return err
		}
		if room.HasParticipant(userId) {
			return nil
		}
		if room.Mode == database.ModeAshes {
			return ErrRoomFull
		}
		if _, err := bs.account(userId); err != nil {
			return err
		}

		room.Participants = append(room.Participants, userId)
		if room.BattleStarted && !room.SessionEnded {
			if room.Scores == nil {
				room.Scores = map[int]int{}
			}
			room.Scores[userId] = 0
		}

		if err := bs.saveRoom(room); err != nil {
			return err
		}
		bs.log.Printf("user %d joined room %q", userId, code)
		return nil
	})

	return room, err
}

// GetRoom returns the room, ending the session first if its timer ran out.
func (bs *BattleServer) GetRoom(ctx context.Context, code string, callerId int) (database.Room, error) {
	var room database.Room
	err := bs.withRoom(ctx, code, func() error {
		var err error
		room, err = bs.loadRoom(code)
		if err != nil {
			return err
		}
		if bs.expireSession(&room) {
			if err := bs.saveRoom(room); err != nil {
				return err
			}
			bs.log.Printf("room %q timer expired, observed by user %d", code, callerId)
			bs.settle(room)
		}
		return nil
	})

	return room, err
}

// StartBattle moves a custom room from waiting to battling.
func (bs *BattleServer) StartBattle(ctx context.Context, code string, requesterId int) (database.Room, error) {
	var room database.Room
	err := bs.withRoom(ctx, code, func() error {
		var err error
		room, err = bs.loadRoom(code)
		if err != nil {
			return err
		}
		if room.CreatedBy != requesterId {
			return ErrForbidden
		}
		if room.BattleStarted {
			return ErrAlreadyStarted
		}
		// a forfeit can end a session before it ever started
		if room.SessionEnded {
			return ErrSessionEnded
		}

		q, err := bs.catalog.Random()
		if err != nil {
			return upstream("pick question", err)
		}

		now := bs.clock()
		room.BattleStarted = true
		room.QuestionId = &q.Id
		room.TimerStartedAt = &now
		if room.TimerDuration == 0 {
			room.TimerDuration = bs.timerDuration
		}
		if room.Scores == nil {
			room.Scores = map[int]int{}
		}
		for _, id := range room.Participants {
			room.Scores[id] = 0
		}

		if err := bs.saveRoom(room); err != nil {
			return err
		}

		if err := bs.db.IncrementBattlesFought(room.Participants); err != nil {
			bs.log.Printf("IncrementBattlesFought for room %q: %v", code, err)
		}

		bs.log.Printf("battle started in room %q with question %d", code, q.Id)
		return nil
	})

	return room, err
}

// SubmitSolution records a submission by userId against the current question.
func (bs *BattleServer) SubmitSolution(ctx context.Context, code string, userId int, allPassed bool) (SubmitResult, error) {
	var res SubmitResult
	err := bs.withRoom(ctx, code, func() error {
		room, err := bs.loadRoom(code)
		if err != nil {
			return err
		}
		if !room.HasParticipant(userId) {
			return ErrNotParticipant
		}

		if room.SessionEnded {
			res = terminalResult(room, room.TimerExpired(bs.clock()))
			return nil
		}
		if !room.BattleStarted {
			return ErrBattleNotStarted
		}

		if bs.expireSession(&room) {
			if err := bs.saveRoom(room); err != nil {
				return err
			}
			bs.log.Printf("room %q timer expired on submit by user %d", code, userId)
			bs.settle(room)
			res = terminalResult(room, true)
			return nil
		}

		if !allPassed {
			res = SubmitResult{
				Score:              room.Scores[userId],
				QuestionsCompleted: room.QuestionsCompleted,
			}
			return nil
		}

		points := 0
		if room.QuestionId != nil {
			if q, ok := bs.catalog.Lookup(*room.QuestionId); ok {
				points = questions.Points(q.Difficulty)
			}
		}

		room.Scores[userId] += points
		room.QuestionsCompleted++
		res = SubmitResult{
			Accepted:           true,
			PointsAwarded:      points,
			Score:              room.Scores[userId],
			QuestionsCompleted: room.QuestionsCompleted,
		}

		if room.QuestionsCompleted >= MaxQuestions {
			room.SessionEnded = true
			if err := bs.saveRoom(room); err != nil {
				return err
			}
			bs.log.Printf("room %q completed all questions", code)
			bs.settle(room)

			res.SessionEnded = true
			res.FinalScores = room.FinalScores()
			return nil
		}

		current := 0
		if room.QuestionId != nil {
			current = *room.QuestionId
		}
		if next, ok := bs.catalog.RandomExcluding(current); ok {
			room.QuestionId = &next.Id
			res.QuestionChanged = true
			res.NewQuestionId = &next.Id
		}

		return bs.saveRoom(room)
	})

	return res, err
}

func terminalResult(room database.Room, timeExpired bool) SubmitResult {
	return SubmitResult{
		QuestionsCompleted: room.QuestionsCompleted,
		SessionEnded:       true,
		TimeExpired:        timeExpired,
		FinalScores:        room.FinalScores(),
	}
}

// expireSession ends a running battle whose deadline has passed and reports
// whether it did. The caller persists the room and settles.
func (bs *BattleServer) expireSession(room *database.Room) bool {
	if !room.BattleStarted || room.SessionEnded || !room.TimerExpired(bs.clock()) {
		return false
	}
	room.SessionEnded = true
	return true
}

// ListRooms returns the live rooms userId hosts or participates in.
func (bs *BattleServer) ListRooms(ctx context.Context, userId int) ([]database.Room, error) {
	rooms, err := bs.db.ListRoomsForUser(userId)
	if err != nil {
		return nil, upstream("list rooms", err)
	}
	return rooms, nil
}
