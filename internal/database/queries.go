package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

const (
	roomColumns = "code, mode, created_by, participants, battle_started, question_id, scores, " +
		"questions_completed, session_ended, timer_started_at, timer_duration_ms, recent_leave, created_at, expires_at"

	accountColumns = "id, username, rating, battles_fought, created_at"

	uniqueViolation = "23505"
)

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (Account, error) {
	var a Account
	err := row.Scan(
		&a.Id,
		&a.Username,
		&a.Rating,
		&a.BattlesFought,
		&a.CreatedAt,
	)
	return a, err
}

func scanRoom(row scanner) (Room, error) {
	var (
		room         Room
		mode         string
		participants pq.Int64Array
		questionId   sql.NullInt64
		scores       []byte
		timerStarted sql.NullTime
		durationMs   int64
		recentLeave  []byte
	)

	err := row.Scan(
		&room.Code,
		&mode,
		&room.CreatedBy,
		&participants,
		&room.BattleStarted,
		&questionId,
		&scores,
		&room.QuestionsCompleted,
		&room.SessionEnded,
		&timerStarted,
		&durationMs,
		&recentLeave,
		&room.CreatedAt,
		&room.ExpiresAt,
	)
	if err != nil {
		return Room{}, err
	}

	room.Mode = RoomMode(mode)
	room.TimerDuration = time.Duration(durationMs) * time.Millisecond
	room.Participants = make([]int, len(participants))
	for i, p := range participants {
		room.Participants[i] = int(p)
	}

	if questionId.Valid {
		id := int(questionId.Int64)
		room.QuestionId = &id
	}

	if timerStarted.Valid {
		ts := timerStarted.Time
		room.TimerStartedAt = &ts
	}

	room.Scores = make(map[int]int)
	if len(scores) > 0 {
		if err := json.Unmarshal(scores, &room.Scores); err != nil {
			return Room{}, fmt.Errorf("unmarshal scores: %w", err)
		}
	}

	if len(recentLeave) > 0 {
		var rl RecentLeave
		if err := json.Unmarshal(recentLeave, &rl); err != nil {
			return Room{}, fmt.Errorf("unmarshal recent leave: %w", err)
		}
		room.RecentLeave = &rl
	}

	return room, nil
}

// roomArgs encodes the mutable columns of a room in the order
// participants, battle_started, question_id, scores, questions_completed,
// session_ended, timer_started_at, recent_leave, created_by.
func roomArgs(room Room) ([]any, error) {
	scores := room.Scores
	if scores == nil {
		scores = map[int]int{}
	}
	scoresJson, err := json.Marshal(scores)
	if err != nil {
		return nil, fmt.Errorf("marshal scores: %w", err)
	}

	// lib/pq sends []byte as bytea, so json columns are bound as text
	var recentLeave sql.NullString
	if room.RecentLeave != nil {
		rl, err := json.Marshal(room.RecentLeave)
		if err != nil {
			return nil, fmt.Errorf("marshal recent leave: %w", err)
		}
		recentLeave = sql.NullString{String: string(rl), Valid: true}
	}

	var questionId sql.NullInt64
	if room.QuestionId != nil {
		questionId = sql.NullInt64{Int64: int64(*room.QuestionId), Valid: true}
	}

	var timerStarted sql.NullTime
	if room.TimerStartedAt != nil {
		timerStarted = sql.NullTime{Time: room.TimerStartedAt.UTC(), Valid: true}
	}

	participants := make(pq.Int64Array, len(room.Participants))
	for i, p := range room.Participants {
		participants[i] = int64(p)
	}

	return []any{
		participants,
		room.BattleStarted,
		questionId,
		string(scoresJson),
		room.QuestionsCompleted,
		room.SessionEnded,
		timerStarted,
		recentLeave,
		room.CreatedBy,
	}, nil
}

func (db *PgBattleRepository) GetAccountById(id int) (Account, error) {
	row := db.conn.QueryRow(
		"SELECT "+accountColumns+" FROM accounts WHERE id = $1 LIMIT 1",
		id,
	)

	return scanAccount(row)
}

func (db *PgBattleRepository) GetAccountsByIds(ids []int) ([]Account, error) {
	rows, err := db.conn.Query(
		"SELECT "+accountColumns+" FROM accounts WHERE id = ANY($1)",
		pq.Array(ids),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]Account, 0, len(ids))
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}

	return accounts, rows.Err()
}

func (db *PgBattleRepository) ListTopAccounts(limit int) ([]Account, error) {
	rows, err := db.conn.Query(
		"SELECT "+accountColumns+" FROM accounts ORDER BY rating DESC, id ASC LIMIT $1",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]Account, 0, limit)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}

	return accounts, rows.Err()
}

func (db *PgBattleRepository) IncrementBattlesFought(ids []int) error {
	_, err := db.conn.Exec(
		"UPDATE accounts SET battles_fought = battles_fought + 1, updated_at = $2 WHERE id = ANY($1)",
		pq.Array(ids),
		time.Now().UTC(),
	)

	return err
}

func (db *PgBattleRepository) AdjustRatings(winnerId, loserId, delta int) (winner Account, loser Account, err error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Account{}, Account{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	winner, err = scanAccount(tx.QueryRow(
		"UPDATE accounts SET rating = rating + $2, updated_at = $3 WHERE id = $1 RETURNING "+accountColumns,
		winnerId,
		delta,
		now,
	))
	if err != nil {
		return Account{}, Account{}, fmt.Errorf("raise winner rating: %w", err)
	}

	loser, err = scanAccount(tx.QueryRow(
		"UPDATE accounts SET rating = GREATEST(rating - $2, 0), updated_at = $3 WHERE id = $1 RETURNING "+accountColumns,
		loserId,
		delta,
		now,
	))
	if err != nil {
		return Account{}, Account{}, fmt.Errorf("lower loser rating: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return Account{}, Account{}, err
	}

	return winner, loser, nil
}

func (db *PgBattleRepository) RoomCodeExists(code string) (bool, error) {
	var exists bool
	err := db.conn.QueryRow(
		"SELECT EXISTS (SELECT 1 FROM rooms WHERE code = $1 AND expires_at > $2)",
		code,
		time.Now().UTC(),
	).Scan(&exists)

	return exists, err
}

func (db *PgBattleRepository) CreateRoom(room Room) (Room, error) {
	args, err := roomArgs(room)
	if err != nil {
		return Room{}, err
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return Room{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	// an expired room that the janitor has not collected yet must not block its code
	_, err = tx.Exec("DELETE FROM rooms WHERE code = $1 AND expires_at <= $2", room.Code, time.Now().UTC())
	if err != nil {
		return Room{}, err
	}

	args = append(args,
		room.Code,
		string(room.Mode),
		room.TimerDuration.Milliseconds(),
		room.CreatedAt.UTC(),
		room.ExpiresAt.UTC(),
	)

	created, err := scanRoom(tx.QueryRow(
		"INSERT INTO rooms (participants, battle_started, question_id, scores, questions_completed, "+
			"session_ended, timer_started_at, recent_leave, created_by, code, mode, timer_duration_ms, created_at, expires_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14) RETURNING "+roomColumns,
		args...,
	))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			err = ErrDuplicateCode
		}
		return Room{}, err
	}

	if err = tx.Commit(); err != nil {
		return Room{}, err
	}

	return created, nil
}

func (db *PgBattleRepository) GetRoomByCode(code string) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT "+roomColumns+" FROM rooms WHERE code = $1 AND expires_at > $2 LIMIT 1",
		code,
		time.Now().UTC(),
	)

	return scanRoom(row)
}

func (db *PgBattleRepository) ListRoomsForUser(accountId int) ([]Room, error) {
	rows, err := db.conn.Query(
		"SELECT "+roomColumns+" FROM rooms "+
			"WHERE (created_by = $1 OR $1 = ANY(participants)) AND expires_at > $2 ORDER BY created_at DESC",
		accountId,
		time.Now().UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, room)
	}

	return rooms, rows.Err()
}

func (db *PgBattleRepository) UpdateRoom(room Room) error {
	args, err := roomArgs(room)
	if err != nil {
		return err
	}

	res, err := db.conn.Exec(
		"UPDATE rooms SET participants = $1, battle_started = $2, question_id = $3, scores = $4, "+
			"questions_completed = $5, session_ended = $6, timer_started_at = $7, recent_leave = $8, "+
			"created_by = $9 WHERE code = $10",
		append(args, room.Code)...,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("update room %q: %w", room.Code, sql.ErrNoRows)
	}

	return nil
}

func (db *PgBattleRepository) DeleteRoom(code string) error {
	_, err := db.conn.Exec("DELETE FROM rooms WHERE code = $1", code)

	return err
}

func (db *PgBattleRepository) DeleteExpiredRooms(now time.Time) (int, error) {
	res, err := db.conn.Exec("DELETE FROM rooms WHERE expires_at <= $1", now.UTC())
	if err != nil {
		return 0, err
	}

	n, err := res.RowsAffected()
	return int(n), err
}
