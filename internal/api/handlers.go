package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/npezzotti/go-codeduel/internal/database"
	"github.com/npezzotti/go-codeduel/internal/rating"
	"github.com/npezzotti/go-codeduel/internal/sandbox"
	"github.com/npezzotti/go-codeduel/internal/server"
	"github.com/npezzotti/go-codeduel/internal/types"
)

const (
	leaderboardSize = 100
	maxBodyBytes    = 128 * 1024
)

type JoinRoomRequest struct {
	Code string `json:"code"`
}

type LeaveRoomRequest struct {
	InBattle bool `json:"in_battle"`
}

type SubmitRequest struct {
	AllPassed bool `json:"all_passed"`
}

type ExecuteRequest struct {
	Source   string `json:"source"`
	Language string `json:"language"`
}

func (s *CodeDuelApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *CodeDuelApp) writeError(w http.ResponseWriter, err error) {
	errResp := apiErrorFor(err)
	if errResp.StatusCode >= http.StatusInternalServerError {
		s.log.Printf("request failed: %v", err)
	}
	s.writeJson(w, errResp.StatusCode, errResp)
}

// decodeBody decodes an optional JSON body into v. An empty body leaves v
// untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (s *CodeDuelApp) callerId(w http.ResponseWriter, r *http.Request) (int, bool) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
	}
	return userId, ok
}

func (s *CodeDuelApp) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Println("health check:", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *CodeDuelApp) createRoom(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.callerId(w, r)
	if !ok {
		return
	}

	room, err := s.bs.CreateRoom(r.Context(), userId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusCreated, types.CreateRoomResponse{Code: room.Code})
}

func (s *CodeDuelApp) listRooms(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.callerId(w, r)
	if !ok {
		return
	}

	rooms, err := s.bs.ListRooms(r.Context(), userId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	res := make([]types.RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		res = append(res, types.RoomSummary{
			Code:          room.Code,
			Mode:          string(room.Mode),
			IsHost:        room.CreatedBy == userId,
			Participants:  len(room.Participants),
			BattleStarted: room.BattleStarted,
			SessionEnded:  room.SessionEnded,
			CreatedAt:     room.CreatedAt,
		})
	}

	s.writeJson(w, http.StatusOK, res)
}

func (s *CodeDuelApp) joinRoom(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.callerId(w, r)
	if !ok {
		return
	}

	var req JoinRoomRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil || req.Code == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.bs.JoinRoom(r.Context(), req.Code, userId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	players, err := s.players(room)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, types.JoinRoomResponse{
		Code:         room.Code,
		Participants: players,
	})
}

func (s *CodeDuelApp) getRoom(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.callerId(w, r)
	if !ok {
		return
	}

	room, err := s.bs.GetRoom(r.Context(), r.PathValue("code"), userId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	players, err := s.players(room)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, s.roomView(room, players, userId))
}

func (s *CodeDuelApp) leaveRoom(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.callerId(w, r)
	if !ok {
		return
	}

	var req LeaveRoomRequest
	if err := decodeBody(w, r, &req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	res, err := s.bs.LeaveRoom(r.Context(), r.PathValue("code"), userId, req.InBattle)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := types.LeaveRoomResponse{
		RoomDeleted:  res.RoomDeleted,
		NewHost:      res.NewHost,
		SessionEnded: res.SessionEnded,
	}
	if res.Winner != nil {
		resp.Winner = &types.User{Id: res.Winner.Id, Username: res.Winner.Username}
	}

	s.writeJson(w, http.StatusOK, resp)
}

func (s *CodeDuelApp) startBattle(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.callerId(w, r)
	if !ok {
		return
	}

	room, err := s.bs.StartBattle(r.Context(), r.PathValue("code"), userId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, types.StartBattleResponse{
		QuestionId:     *room.QuestionId,
		TimerStartedAt: *room.TimerStartedAt,
	})
}

func (s *CodeDuelApp) submitSolution(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.callerId(w, r)
	if !ok {
		return
	}

	var req SubmitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	res, err := s.bs.SubmitSolution(r.Context(), r.PathValue("code"), userId, req.AllPassed)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, types.SubmitResponse{
		Accepted:           res.Accepted,
		PointsAwarded:      res.PointsAwarded,
		Score:              res.Score,
		QuestionsCompleted: res.QuestionsCompleted,
		QuestionChanged:    res.QuestionChanged,
		NewQuestionId:      res.NewQuestionId,
		SessionEnded:       res.SessionEnded,
		TimeExpired:        res.TimeExpired,
		FinalScores:        res.FinalScores,
	})
}

func (s *CodeDuelApp) joinQueue(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.callerId(w, r)
	if !ok {
		return
	}

	res, err := s.bs.JoinQueue(r.Context(), userId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, queueResponse(res))
}

func (s *CodeDuelApp) leaveQueue(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.callerId(w, r)
	if !ok {
		return
	}

	s.writeJson(w, http.StatusOK, types.LeaveQueueResponse{Removed: s.bs.LeaveQueue(userId)})
}

func (s *CodeDuelApp) queueStatus(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.callerId(w, r)
	if !ok {
		return
	}

	res, err := s.bs.QueueStatus(r.Context(), userId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, queueResponse(res))
}

func (s *CodeDuelApp) queueStats(w http.ResponseWriter, r *http.Request) {
	st := s.bs.QueueSnapshot()
	s.writeJson(w, http.StatusOK, types.QueueStats{
		Size:               st.Size,
		PendingMatches:     st.Pending,
		OldestWaitSeconds:  int(st.OldestWait / time.Second),
		AverageWaitSeconds: int(st.AverageWait / time.Second),
	})
}

func (s *CodeDuelApp) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := leaderboardSize
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		limit = min(n, leaderboardSize)
	}

	accounts, err := s.db.ListTopAccounts(limit)
	if err != nil {
		s.log.Println("ListTopAccounts:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	entries := make([]types.LeaderboardEntry, 0, len(accounts))
	for i, a := range accounts {
		entries = append(entries, types.LeaderboardEntry{
			Rank:          i + 1,
			Id:            a.Id,
			Username:      a.Username,
			Rating:        a.Rating,
			Tier:          string(rating.TierFor(a.Rating)),
			BattlesFought: a.BattlesFought,
		})
	}

	s.writeJson(w, http.StatusOK, entries)
}

func (s *CodeDuelApp) getQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	q, ok := s.catalog.Lookup(id)
	if !ok {
		errResp := NewNotFoundError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, q)
}

func (s *CodeDuelApp) execute(w http.ResponseWriter, r *http.Request) {
	userId, ok := s.callerId(w, r)
	if !ok {
		return
	}

	var req ExecuteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil || req.Source == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	lang, err := sandbox.LanguageFor(req.Language)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	res, err := s.executor.Execute(r.Context(), req.Source, lang)
	if err != nil {
		s.log.Printf("execute for user %d: %v", userId, err)
		errResp := NewBadGatewayError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, types.ExecuteResponse{
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		Output:   res.Output,
		ExitCode: res.ExitCode,
	})
}

func (s *CodeDuelApp) players(room database.Room) ([]types.Player, error) {
	accounts, err := s.bs.Players(room)
	if err != nil {
		return nil, err
	}

	players := make([]types.Player, 0, len(accounts))
	for _, a := range accounts {
		players = append(players, types.Player{
			Id:       a.Id,
			Username: a.Username,
			Rating:   a.Rating,
			Tier:     string(rating.TierFor(a.Rating)),
			Score:    room.Scores[a.Id],
			IsHost:   a.Id == room.CreatedBy,
		})
	}
	return players, nil
}

func (s *CodeDuelApp) roomView(room database.Room, players []types.Player, callerId int) types.Room {
	view := types.Room{
		Code:               room.Code,
		Mode:               string(room.Mode),
		CreatedBy:          room.CreatedBy,
		IsHost:             room.CreatedBy == callerId,
		Participants:       players,
		BattleStarted:      room.BattleStarted,
		QuestionId:         room.QuestionId,
		Scores:             room.FinalScores(),
		QuestionsCompleted: room.QuestionsCompleted,
		SessionEnded:       room.SessionEnded,
		TimerStartedAt:     room.TimerStartedAt,
		TimerDurationMs:    room.TimerDuration.Milliseconds(),
		CreatedAt:          room.CreatedAt,
		ExpiresAt:          room.ExpiresAt,
	}

	if deadline, ok := room.Deadline(); ok && !room.SessionEnded {
		view.TimeRemainingMs = max(deadline.Sub(s.now()).Milliseconds(), 0)
	}
	if room.RecentLeave != nil {
		view.RecentLeave = &types.RecentLeave{
			UserId:    room.RecentLeave.UserId,
			Username:  room.RecentLeave.Username,
			Timestamp: room.RecentLeave.Timestamp,
		}
	}

	return view
}

func queueResponse(res server.QueueResult) types.QueueResponse {
	resp := types.QueueResponse{
		Status:        string(res.State),
		InQueue:       res.State == server.QueueWaiting,
		Matched:       res.Matched(),
		AlreadyQueued: res.AlreadyQueued,
		RoomCode:      res.RoomCode,
		QueuePosition: res.QueuePosition,
		QueueSize:     res.QueueSize,
		WaitSeconds:   int(res.WaitTime / time.Second),
	}
	if res.Opponent != nil {
		resp.Opponent = &types.Opponent{
			Id:       res.Opponent.Id,
			Username: res.Opponent.Username,
			Rating:   res.Opponent.Rating,
			Tier:     string(rating.TierFor(res.Opponent.Rating)),
		}
	}
	return resp
}
