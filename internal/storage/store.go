package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/polecart/internal/dynamo"
	"github.com/san-kum/polecart/internal/env"
	"github.com/san-kum/polecart/internal/export"
	"github.com/san-kum/polecart/internal/sim"
)

const (
	metadataFile     = "metadata.json"
	observationsFile = "observations.csv"
)

var ErrRunNotFound = errors.New("run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID           string             `json:"id"`
	Preset       string             `json:"preset"`
	Policy       string             `json:"policy"`
	PolicyParams map[string]float64 `json:"policy_params,omitempty"`
	Timestamp    time.Time          `json:"timestamp"`
	Seed         int64              `json:"seed"`
	Steps        int                `json:"steps"`
	Terminated   bool               `json:"terminated"`
	TotalReward  float64            `json:"total_reward"`
	Env          env.Config         `json:"env"`
	Metrics      map[string]float64 `json:"metrics"`
}

// Save writes the episode under a fresh run id and returns the id.
func (s *Store) Save(preset string, seed int64, ep *sim.Episode) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d_%s", preset, now.Unix(), uuid.NewString()[:8])
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:           runID,
		Preset:       preset,
		Policy:       ep.Policy,
		PolicyParams: ep.PolicyParams,
		Timestamp:    now,
		Seed:         seed,
		Steps:        ep.Steps,
		Terminated:   ep.Terminated,
		TotalReward:  ep.TotalReward(),
		Env:          ep.Config,
		Metrics:      ep.Metrics,
	}
	if err := writeMetadata(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeObservations(filepath.Join(runDir, observationsFile), ep); err != nil {
		return "", err
	}
	return runID, nil
}

func writeMetadata(path string, meta RunMetadata) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func writeObservations(path string, ep *sim.Episode) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return export.WriteCSV(f, ep)
}

// List returns the stored runs, newest first. Directories without readable
// metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadEpisode rebuilds the recorded episode from a run's files.
func (s *Store) LoadEpisode(runID string) (*sim.Episode, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.baseDir, runID, observationsFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(export.CSVHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	ep := &sim.Episode{
		Config:       meta.Env,
		Policy:       meta.Policy,
		PolicyParams: meta.PolicyParams,
		Metrics:      meta.Metrics,
		Steps:        meta.Steps,
		Terminated:   meta.Terminated,
	}
	if len(records) < 2 {
		return ep, nil
	}

	for i, record := range records[1:] {
		vals := make([]float64, 0, dynamo.StateSize+1)
		for _, field := range record[:dynamo.StateSize+1] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("run %s row %d: %w", runID, i+1, err)
			}
			vals = append(vals, v)
		}
		ep.Times = append(ep.Times, vals[0])
		ep.States = append(ep.States, dynamo.State(vals[1:]))

		if i == 0 {
			continue
		}
		action, err := strconv.Atoi(record[dynamo.StateSize+1])
		if err != nil {
			return nil, fmt.Errorf("run %s row %d: %w", runID, i+1, err)
		}
		reward, err := strconv.ParseFloat(record[dynamo.StateSize+2], 64)
		if err != nil {
			return nil, fmt.Errorf("run %s row %d: %w", runID, i+1, err)
		}
		ep.Actions = append(ep.Actions, env.Action(action))
		ep.Rewards = append(ep.Rewards, reward)
	}
	return ep, nil
}

// LoadStates returns the recorded states and their times.
func (s *Store) LoadStates(runID string) ([]dynamo.State, []float64, error) {
	ep, err := s.LoadEpisode(runID)
	if err != nil {
		return nil, nil, err
	}
	return ep.States, ep.Times, nil
}

func (s *Store) Delete(runID string) error {
	runDir := filepath.Join(s.baseDir, runID)
	if _, err := os.Stat(filepath.Join(runDir, metadataFile)); err != nil {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return os.RemoveAll(runDir)
}
