package testutil

import (
	"math/rand"
	"sync"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uniform returns a pseudo-random number in [lo, hi).
func (r *RNG) Uniform(lo, hi float64) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo + r.rand.Float64()*(hi-lo)
}

// ModeGroup describes a physical mode: every generated row lies uniformly
// within Frequency±FrequencySpread, Damping±DampingSpread and Size±SizeSpread.
type ModeGroup struct {
	Count int

	Frequency float64
	Damping   float64
	Size      float64

	FrequencySpread float64
	DampingSpread   float64
	SizeSpread      float64
}

// Noise describes spurious modes scattered uniformly over a box.
type Noise struct {
	Count int

	FrequencyMin, FrequencyMax float64
	DampingMin, DampingMax     float64
	SizeMin, SizeMax           float64
}

// ScatteredNoise returns count noise rows at 8-20 Hz, 6-20 % damping and
// size 0-20. The box is far from the groups used in the package tests.
func ScatteredNoise(count int) Noise {
	return Noise{
		Count:        count,
		FrequencyMin: 8,
		FrequencyMax: 20,
		DampingMin:   6,
		DampingMax:   20,
		SizeMin:      0,
		SizeMax:      20,
	}
}

// OverlappingNoise returns count noise rows at 0-10 Hz, 0-10 % damping and
// size 0-20, a box that contains the groups used in the package tests.
func OverlappingNoise(count int) Noise {
	return Noise{
		Count:        count,
		FrequencyMin: 0,
		FrequencyMax: 10,
		DampingMin:   0,
		DampingMax:   10,
		SizeMin:      0,
		SizeMax:      20,
	}
}

// Modes is a column oriented synthetic mode table. Group holds the generating
// group of every row (-1 for noise).
type Modes struct {
	Index     []float64
	Frequency []float64
	Damping   []float64
	Size      []float64
	Group     []int
}

// Len returns the number of rows.
func (m Modes) Len() int { return len(m.Index) }

// Rows returns the row positions generated by group g (-1 for noise).
func (m Modes) Rows(g int) []int {
	var rows []int
	for i, v := range m.Group {
		if v == g {
			rows = append(rows, i)
		}
	}
	return rows
}

// Modes generates the groups and the noise in random interleaved order.
// The index is the row ordinal.
func (r *RNG) Modes(groups []ModeGroup, noise Noise) Modes {
	r.mu.Lock()
	defer r.mu.Unlock()

	var assignment []int
	for g, mg := range groups {
		for range mg.Count {
			assignment = append(assignment, g)
		}
	}
	for range noise.Count {
		assignment = append(assignment, -1)
	}
	r.rand.Shuffle(len(assignment), func(i, j int) {
		assignment[i], assignment[j] = assignment[j], assignment[i]
	})

	n := len(assignment)
	m := Modes{
		Index:     make([]float64, n),
		Frequency: make([]float64, n),
		Damping:   make([]float64, n),
		Size:      make([]float64, n),
		Group:     assignment,
	}

	around := func(center, spread float64) float64 {
		return center + (r.rand.Float64()*2-1)*spread
	}
	between := func(lo, hi float64) float64 {
		return lo + r.rand.Float64()*(hi-lo)
	}

	for i, g := range assignment {
		m.Index[i] = float64(i)
		if g < 0 {
			m.Frequency[i] = between(noise.FrequencyMin, noise.FrequencyMax)
			m.Damping[i] = between(noise.DampingMin, noise.DampingMax)
			m.Size[i] = between(noise.SizeMin, noise.SizeMax)
			continue
		}
		mg := groups[g]
		m.Frequency[i] = around(mg.Frequency, mg.FrequencySpread)
		m.Damping[i] = around(mg.Damping, mg.DampingSpread)
		m.Size[i] = around(mg.Size, mg.SizeSpread)
	}

	return m
}

// Scenario returns 300 modes of group A (2 Hz, 1 % damping, size 10), 300
// modes of group B (5 Hz, 8 % damping, size 2) and 400 scattered noise modes.
func Scenario(seed int64) Modes {
	return NewRNG(seed).Modes(scenarioGroups(), ScatteredNoise(400))
}

// OverlappingScenario returns the groups of Scenario with 400 noise modes
// spread over the same frequency, damping and size ranges as the groups.
func OverlappingScenario(seed int64) Modes {
	return NewRNG(seed).Modes(scenarioGroups(), OverlappingNoise(400))
}

func scenarioGroups() []ModeGroup {
	return []ModeGroup{
		{Count: 300, Frequency: 2, Damping: 1, Size: 10, FrequencySpread: 0.01, DampingSpread: 0.3, SizeSpread: 1},
		{Count: 300, Frequency: 5, Damping: 8, Size: 2, FrequencySpread: 0.01, DampingSpread: 0.3, SizeSpread: 0.5},
	}
}
