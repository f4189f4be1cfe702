package optimizer

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

// Selector picks the one field an update event optimizes. fields is sorted
// and never empty.
type Selector interface {
	Pick(table string, fields []string) string
}

// RandomSelector picks uniformly at random.
type RandomSelector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSelector seeds the generator with seed, or with the clock when
// seed is zero. A fixed seed gives a reproducible sequence.
func NewRandomSelector(seed uint64) *RandomSelector {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &RandomSelector{rng: rand.New(rand.NewPCG(seed, seed>>1|1))}
}

func (s *RandomSelector) Pick(_ string, fields []string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fields[s.rng.IntN(len(fields))]
}

// RoundRobinSelector cycles through the fields per table.
type RoundRobinSelector struct {
	mu   sync.Mutex
	next map[string]int
}

func NewRoundRobinSelector() *RoundRobinSelector {
	return &RoundRobinSelector{next: make(map[string]int)}
}

func (s *RoundRobinSelector) Pick(table string, fields []string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.next[table] % len(fields)
	s.next[table] = i + 1
	return fields[i]
}

// SelectorByName builds the selector a config names.
func SelectorByName(name string, seed uint64) (Selector, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "random":
		return NewRandomSelector(seed), nil
	case "round_robin":
		return NewRoundRobinSelector(), nil
	default:
		return nil, fmt.Errorf("unknown selection policy %q", name)
	}
}
