package loadtest

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/okian/statboard/internal/domain/clock"
)

// Record is one generated stat, in the POST /stats body shape.
type Record struct {
	User  string  `json:"user"`
	Game  string  `json:"game"`
	Stat  string  `json:"stat"`
	Value float64 `json:"value"`
	Day   uint64  `json:"day"`
}

// Dataset is everything a run submits.
type Dataset struct {
	RunID   string   `json:"runId"`
	Games   []string `json:"games"`
	Stats   []string `json:"stats"`
	Users   []string `json:"users"`
	Days    []uint64 `json:"days"`
	Records []Record `json:"records"`
}

// Value shapes, chosen uniformly.
const (
	shapeZero = iota
	shapeSmall
	shapeLarge
	shapeHuge
	shapeInteger
	shapeCount
)

// Generate builds a deterministic dataset for seed. Game names carry a run id
// so a run never reads stats written by an earlier one.
func Generate(cfg Config, seed uint64, today uint64) Dataset {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:], seed)
	src := rand.NewChaCha8(key)
	rng := rand.New(src)

	newID := func() string {
		id, err := uuid.NewRandomFromReader(src)
		if err != nil {
			// ChaCha8 never fails to read.
			panic(err)
		}
		return id.String()
	}

	runID := newID()[:8]
	ds := Dataset{RunID: runID}
	for g := 0; g < cfg.Games; g++ {
		ds.Games = append(ds.Games, fmt.Sprintf("game-%s-%d", runID, g))
	}
	for s := 0; s < cfg.Stats; s++ {
		ds.Stats = append(ds.Stats, fmt.Sprintf("stat%d", s))
	}
	for u := 0; u < cfg.Users; u++ {
		ds.Users = append(ds.Users, newID())
	}
	today = clock.DayOf(today)
	for d := 0; d < cfg.Days; d++ {
		ds.Days = append(ds.Days, today-uint64(d)*clock.MillisPerDay)
	}

	ds.Records = make([]Record, 0, cfg.Total())
	for _, game := range ds.Games {
		for _, stat := range ds.Stats {
			for _, user := range ds.Users {
				for _, day := range ds.Days {
					for i := 0; i < cfg.PerDay; i++ {
						ds.Records = append(ds.Records, Record{
							User: user, Game: game, Stat: stat,
							Value: randomValue(rng), Day: day,
						})
					}
				}
			}
		}
	}
	rng.Shuffle(len(ds.Records), func(i, j int) {
		ds.Records[i], ds.Records[j] = ds.Records[j], ds.Records[i]
	})
	return ds
}

// randomValue spans both signs and many magnitudes, so ordering by the raw
// decimal text would disagree with numeric order.
func randomValue(rng *rand.Rand) float64 {
	var v float64
	switch rng.IntN(shapeCount) {
	case shapeZero:
		return 0
	case shapeSmall:
		v = rng.Float64() * math.Pow(10, -float64(rng.IntN(6)))
	case shapeLarge:
		v = rng.Float64() * math.Pow(10, float64(rng.IntN(9)))
	case shapeHuge:
		// DynamoDB numbers stop short of 1e126.
		v = (1 + rng.Float64()) * math.Pow(10, float64(100+rng.IntN(25)))
	case shapeInteger:
		v = float64(rng.IntN(10_000))
	}
	if rng.IntN(2) == 0 {
		v = -v
	}
	return v
}
