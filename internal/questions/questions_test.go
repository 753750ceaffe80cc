package questions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoints(t *testing.T) {
	assert.Equal(t, 5, Points(Easy))
	assert.Equal(t, 8, Points(Medium))
	assert.Equal(t, 14, Points(Hard))
	assert.Equal(t, 0, Points("Impossible"), "expected unknown difficulty to award nothing")
}

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err, "expected embedded bank to parse")
	assert.Equal(t, 10, c.Len())

	q, ok := c.Lookup(7)
	assert.True(t, ok)
	assert.Equal(t, "Trapping Rain Water", q.Title)
	assert.Equal(t, Hard, q.Difficulty)

	_, ok = c.Lookup(999)
	assert.False(t, ok, "expected lookup of unknown id to fail")
}

func TestNewStaticCatalog_DuplicateId(t *testing.T) {
	_, err := NewStaticCatalog([]Question{{Id: 1}, {Id: 1}})
	assert.Error(t, err)
}

func TestRandom(t *testing.T) {
	empty, err := NewStaticCatalog(nil)
	require.NoError(t, err)
	_, err = empty.Random()
	assert.ErrorIs(t, err, ErrEmptyCatalog)

	c, err := NewStaticCatalog([]Question{{Id: 1}, {Id: 2}, {Id: 3}})
	require.NoError(t, err)
	c.intN = func(n int) int { return n - 1 }

	q, err := c.Random()
	require.NoError(t, err)
	assert.Equal(t, 3, q.Id)
}

func TestRandomExcluding(t *testing.T) {
	c, err := NewStaticCatalog([]Question{{Id: 10}, {Id: 20}, {Id: 30}})
	require.NoError(t, err)

	tcases := []struct {
		name    string
		exclude int
		pick    int
		want    int
	}{
		{name: "pick before excluded", exclude: 20, pick: 0, want: 10},
		{name: "pick skips excluded", exclude: 20, pick: 1, want: 30},
		{name: "excluding first", exclude: 10, pick: 0, want: 20},
		{name: "unknown exclude id", exclude: 99, pick: 2, want: 30},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			c.intN = func(int) int { return tc.pick }
			q, ok := c.RandomExcluding(tc.exclude)
			assert.True(t, ok)
			assert.Equal(t, tc.want, q.Id)
		})
	}

	t.Run("never returns the excluded question", func(t *testing.T) {
		real, err := NewStaticCatalog([]Question{{Id: 1}, {Id: 2}})
		require.NoError(t, err)
		for range 50 {
			q, ok := real.RandomExcluding(1)
			assert.True(t, ok)
			assert.Equal(t, 2, q.Id)
		}
	})

	t.Run("single question catalog", func(t *testing.T) {
		single, err := NewStaticCatalog([]Question{{Id: 1}})
		require.NoError(t, err)
		_, ok := single.RandomExcluding(1)
		assert.False(t, ok, "expected no alternative question")
	})
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.yaml")
	err := os.WriteFile(path, []byte("questions:\n  - id: 4\n    title: Four\n    difficulty: Medium\n"), 0o600)
	require.NoError(t, err)

	c, err := LoadFile(path)
	require.NoError(t, err)
	q, ok := c.Lookup(4)
	assert.True(t, ok)
	assert.Equal(t, Medium, q.Difficulty)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
