package automation

import (
	"sort"

	"github.com/san-kum/polecart/internal/sim"
)

// Summary aggregates a batch of episodes.
type Summary struct {
	Episodes   int                `json:"episodes" yaml:"episodes"`
	MeanSteps  float64            `json:"mean_steps" yaml:"mean_steps"`
	MeanReward float64            `json:"mean_reward" yaml:"mean_reward"`
	FallRate   float64            `json:"fall_rate" yaml:"fall_rate"`
	Metrics    map[string]float64 `json:"metrics" yaml:"metrics"`
}

// Summarize averages steps, reward and every metric, and counts the share
// of episodes that ended out of bounds.
func Summarize(episodes []*sim.Episode) Summary {
	s := Summary{Metrics: make(map[string]float64)}
	counts := make(map[string]int)
	for _, ep := range episodes {
		if ep == nil {
			continue
		}
		s.Episodes++
		s.MeanSteps += float64(ep.Steps)
		s.MeanReward += ep.TotalReward()
		if ep.Terminated {
			s.FallRate++
		}
		for name, v := range ep.Metrics {
			s.Metrics[name] += v
			counts[name]++
		}
	}
	if s.Episodes == 0 {
		return s
	}

	n := float64(s.Episodes)
	s.MeanSteps /= n
	s.MeanReward /= n
	s.FallRate /= n
	for name, c := range counts {
		s.Metrics[name] /= float64(c)
	}
	return s
}

// MetricNames lists the metric keys in sorted order.
func (s Summary) MetricNames() []string {
	names := make([]string, 0, len(s.Metrics))
	for n := range s.Metrics {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
