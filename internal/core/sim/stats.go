package sim

import (
	"fmt"
	"io"
	"sync"

	"github.com/gocarina/gocsv"
)

// TickStats is one row of the population statistics export.
type TickStats struct {
	Tick       uint64  `csv:"tick"`
	SimTime    float64 `csv:"sim_time"`
	Alive      int     `csv:"alive"`
	Herbivores int     `csv:"herbivores"`
	Carnivores int     `csv:"carnivores"`
	Omnivores  int     `csv:"omnivores"`
	Deaths     uint64  `csv:"deaths"`
	AvgHealth  float64 `csv:"avg_health"`
	AvgHunger  float64 `csv:"avg_hunger"`
	AvgThirst  float64 `csv:"avg_thirst"`
}

// Summarize reduces a snapshot to a stats row.
func Summarize(snap Snapshot) TickStats {
	st := TickStats{
		Tick:    snap.Tick,
		SimTime: snap.Time,
		Alive:   len(snap.Animals),
		Deaths:  snap.Deaths,
	}
	for _, a := range snap.Animals {
		switch a.Diet {
		case Herbivore:
			st.Herbivores++
		case Carnivore:
			st.Carnivores++
		case Omnivore:
			st.Omnivores++
		}
		st.AvgHealth += a.Health
		st.AvgHunger += a.Hunger
		st.AvgThirst += a.Thirst
	}
	if n := float64(st.Alive); n > 0 {
		st.AvgHealth /= n
		st.AvgHunger /= n
		st.AvgThirst /= n
	}
	return st
}

// StatsWriter appends TickStats rows as CSV, writing the header once.
type StatsWriter struct {
	mu            sync.Mutex
	out           io.Writer
	headerWritten bool
}

// NewStatsWriter returns nil when out is nil; a nil writer discards rows.
func NewStatsWriter(out io.Writer) *StatsWriter {
	if out == nil {
		return nil
	}
	return &StatsWriter{out: out}
}

func (w *StatsWriter) Write(stats TickStats) error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	records := []TickStats{stats}

	if !w.headerWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, w.out); err != nil {
			return fmt.Errorf("sim: writing stats: %w", err)
		}
		w.headerWritten = true
		return nil
	}

	if err := gocsv.MarshalWithoutHeaders(records, w.out); err != nil {
		return fmt.Errorf("sim: writing stats: %w", err)
	}
	return nil
}
