package questions

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"

	"gopkg.in/yaml.v3"
)

type Difficulty string

const (
	Easy   Difficulty = "Easy"
	Medium Difficulty = "Medium"
	Hard   Difficulty = "Hard"
)

var ErrEmptyCatalog = errors.New("question catalog is empty")

//go:embed questions.yaml
var defaultBank []byte

type Example struct {
	Input  string `yaml:"input" json:"input"`
	Output string `yaml:"output" json:"output"`
}

type Question struct {
	Id          int        `yaml:"id" json:"id"`
	Title       string     `yaml:"title" json:"title"`
	Difficulty  Difficulty `yaml:"difficulty" json:"difficulty"`
	Description string     `yaml:"description" json:"description"`
	Examples    []Example  `yaml:"examples" json:"examples,omitempty"`
}

// Catalog is the read-only question repository battles draw from.
type Catalog interface {
	Lookup(id int) (Question, bool)
	Random() (Question, error)
	// RandomExcluding picks uniformly among every question except excludeId.
	// It reports false when no other question exists.
	RandomExcluding(excludeId int) (Question, bool)
}

// Points returns the score awarded for solving a question of the given difficulty.
func Points(d Difficulty) int {
	switch d {
	case Easy:
		return 5
	case Medium:
		return 8
	case Hard:
		return 14
	default:
		return 0
	}
}

type bankFile struct {
	Questions []Question `yaml:"questions"`
}

// StaticCatalog is an immutable in-memory catalog.
type StaticCatalog struct {
	questions []Question
	byId      map[int]int
	intN      func(n int) int
}

func NewStaticCatalog(qs []Question) (*StaticCatalog, error) {
	c := &StaticCatalog{
		questions: make([]Question, 0, len(qs)),
		byId:      make(map[int]int, len(qs)),
		intN:      rand.IntN,
	}

	for _, q := range qs {
		if _, ok := c.byId[q.Id]; ok {
			return nil, fmt.Errorf("duplicate question id %d", q.Id)
		}
		c.byId[q.Id] = len(c.questions)
		c.questions = append(c.questions, q)
	}

	return c, nil
}

// LoadFile reads a YAML question bank from disk.
func LoadFile(path string) (*StaticCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}

	return parse(data)
}

// Default returns the catalog compiled into the binary.
func Default() (*StaticCatalog, error) {
	return parse(defaultBank)
}

func parse(data []byte) (*StaticCatalog, error) {
	var bank bankFile
	if err := yaml.Unmarshal(data, &bank); err != nil {
		return nil, fmt.Errorf("unmarshal question bank: %w", err)
	}

	return NewStaticCatalog(bank.Questions)
}

func (c *StaticCatalog) Len() int {
	return len(c.questions)
}

func (c *StaticCatalog) Lookup(id int) (Question, bool) {
	i, ok := c.byId[id]
	if !ok {
		return Question{}, false
	}
	return c.questions[i], true
}

func (c *StaticCatalog) Random() (Question, error) {
	if len(c.questions) == 0 {
		return Question{}, ErrEmptyCatalog
	}
	return c.questions[c.intN(len(c.questions))], nil
}

func (c *StaticCatalog) RandomExcluding(excludeId int) (Question, bool) {
	i, excluded := c.byId[excludeId]
	n := len(c.questions)
	if excluded {
		n--
	}
	if n <= 0 {
		return Question{}, false
	}

	pick := c.intN(n)
	if excluded && pick >= i {
		// skip over the excluded slot
		pick++
	}

	return c.questions[pick], true
}
