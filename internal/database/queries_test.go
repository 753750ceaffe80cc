package database

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRow hands driver values to Scan destinations the way database/sql
// does for the column types rooms use.
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("expected %d destinations, got %d", len(r.values), len(dest))
	}

	for i, d := range dest {
		src := r.values[i]
		if v, ok := src.(driver.Valuer); ok {
			var err error
			if src, err = v.Value(); err != nil {
				return err
			}
		}

		if s, ok := d.(sql.Scanner); ok {
			if err := s.Scan(src); err != nil {
				return fmt.Errorf("column %d: %w", i, err)
			}
			continue
		}

		switch d := d.(type) {
		case *string:
			*d = src.(string)
		case *int:
			*d = src.(int)
		case *int64:
			*d = src.(int64)
		case *bool:
			*d = src.(bool)
		case *time.Time:
			*d = src.(time.Time)
		case *[]byte:
			switch s := src.(type) {
			case nil:
				*d = nil
			case string:
				*d = []byte(s)
			case []byte:
				*d = s
			}
		default:
			return fmt.Errorf("column %d: unsupported destination %T", i, d)
		}
	}
	return nil
}

// rowFor lays out a room the way roomColumns selects it, reusing the
// encoded values roomArgs binds on write.
func rowFor(t *testing.T, room Room) fakeRow {
	t.Helper()
	args, err := roomArgs(room)
	require.NoError(t, err)

	return fakeRow{values: []any{
		room.Code,
		string(room.Mode),
		args[8],
		args[0],
		args[1],
		args[2],
		args[3],
		args[4],
		args[5],
		args[6],
		room.TimerDuration.Milliseconds(),
		args[7],
		room.CreatedAt,
		room.ExpiresAt,
	}}
}

func Test_scanRoom(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	started := created.Add(2 * time.Minute)
	questionId := 7

	tcases := []struct {
		name string
		room Room
		want Room
	}{
		{
			name: "waiting room",
			room: Room{
				Code:          "123456",
				Mode:          ModeCustom,
				CreatedBy:     1,
				Participants:  []int{1},
				TimerDuration: DefaultTimerDuration,
				CreatedAt:     created,
				ExpiresAt:     created.Add(time.Hour),
			},
			want: Room{
				Code:          "123456",
				Mode:          ModeCustom,
				CreatedBy:     1,
				Participants:  []int{1},
				Scores:        map[int]int{},
				TimerDuration: DefaultTimerDuration,
				CreatedAt:     created,
				ExpiresAt:     created.Add(time.Hour),
			},
		},
		{
			name: "ended battle with a departure",
			room: Room{
				Code:               "654321",
				Mode:               ModeAshes,
				CreatedBy:          2,
				Participants:       []int{2, 1},
				BattleStarted:      true,
				QuestionId:         &questionId,
				Scores:             map[int]int{1: 13, 2: 5},
				QuestionsCompleted: 2,
				SessionEnded:       true,
				TimerStartedAt:     &started,
				TimerDuration:      10 * time.Minute,
				RecentLeave:        &RecentLeave{UserId: 3, Username: "carol", Timestamp: started.Add(time.Minute)},
				CreatedAt:          created,
				ExpiresAt:          created.Add(time.Hour),
			},
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			want := tc.want
			if want.Code == "" {
				want = tc.room
			}

			got, err := scanRoom(rowFor(t, tc.room))
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func Test_scanRoom_errors(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	room := Room{Code: "123456", Mode: ModeCustom, CreatedBy: 1, Participants: []int{1}, CreatedAt: created, ExpiresAt: created}

	t.Run("scan error", func(t *testing.T) {
		_, err := scanRoom(fakeRow{err: sql.ErrNoRows})
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})

	t.Run("malformed scores", func(t *testing.T) {
		row := rowFor(t, room)
		row.values[6] = "{not json"
		_, err := scanRoom(row)
		assert.ErrorContains(t, err, "unmarshal scores")
	})

	t.Run("malformed recent leave", func(t *testing.T) {
		row := rowFor(t, room)
		row.values[11] = "[]"
		_, err := scanRoom(row)
		assert.ErrorContains(t, err, "unmarshal recent leave")
	})
}

func Test_roomArgs(t *testing.T) {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*60*60))

	args, err := roomArgs(Room{CreatedBy: 4, Participants: []int{4, 1}, TimerStartedAt: &started})
	require.NoError(t, err)
	require.Len(t, args, 9)

	assert.Equal(t, "{}", args[3], "expected nil scores to encode as an empty object")
	assert.Equal(t, sql.NullInt64{}, args[2])
	assert.Equal(t, sql.NullString{}, args[7])
	assert.Equal(t, sql.NullTime{Time: started.UTC(), Valid: true}, args[6])
	assert.Equal(t, 4, args[8])
}
