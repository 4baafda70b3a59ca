package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/gridsim/internal/experiment"
	"github.com/san-kum/gridsim/internal/field"
)

// ErrRunNotFound is returned when a run ID is not in the store.
var ErrRunNotFound = errors.New("storage: run not found")

type RunMetadata struct {
	ID          string             `json:"id"`
	Rule        string             `json:"rule"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        int64              `json:"seed"`
	Dt          float64            `json:"dt"`
	Steps       int                `json:"steps"`
	Bound       float64            `json:"bound"`
	Shape       []int              `json:"shape"`
	Width       int                `json:"width"`
	Initial     string             `json:"initial"`
	Boundary    string             `json:"boundary"`
	Stencil     string             `json:"stencil"`
	OnError     string             `json:"on_error"`
	MaxRetries  int                `json:"max_retries"`
	RecordEvery int                `json:"record_every"`
	Params      map[string]float64 `json:"params,omitempty"`
	InitParams  map[string]float64 `json:"init_params,omitempty"`
	Cycles      int                `json:"cycles"`
	Anomalies   int                `json:"anomalies"`
	Repaired    int                `json:"repaired"`
	Failures    int                `json:"failures"`
	Stopped     bool               `json:"stopped"`
	Metrics     map[string]float64 `json:"metrics"`
}

// Store persists run metadata together with the recorded snapshot history.
type Store interface {
	Init() error
	Save(meta RunMetadata, history []field.Snapshot) (string, error)
	List() ([]RunMetadata, error)
	Load(runID string) (*RunMetadata, error)
	LoadSnapshots(runID string) ([]field.Snapshot, error)
	Close() error
}

// Open returns the store for backend ("file" or "sqlite") rooted at dir.
func Open(backend, dir string) (Store, error) {
	var s Store
	switch backend {
	case "", "file":
		s = NewFileStore(dir)
	case "sqlite":
		s = NewSQLiteStore(dir)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", backend)
	}
	if err := s.Init(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewRunID builds a sortable, collision-free run ID.
func NewRunID(rule string, now time.Time) string {
	return fmt.Sprintf("%s_%d_%s", rule, now.Unix(), uuid.NewString()[:8])
}

// MetadataFromResult captures the config and outcome of an experiment run.
func MetadataFromResult(res *experiment.Result) RunMetadata {
	cfg := res.Config
	return RunMetadata{
		Rule:        cfg.Rule,
		Seed:        cfg.Seed,
		Dt:          cfg.Dt,
		Steps:       cfg.Steps,
		Bound:       cfg.Bound,
		Shape:       append([]int(nil), cfg.Shape...),
		Width:       res.Final.Width,
		Initial:     cfg.Initial,
		Boundary:    cfg.Boundary,
		Stencil:     cfg.Stencil,
		OnError:     cfg.OnError,
		MaxRetries:  cfg.MaxRetries,
		RecordEvery: cfg.RecordEvery,
		Params:      cfg.Params,
		InitParams:  cfg.InitParams,
		Cycles:      res.Cycles,
		Anomalies:   res.Anomalies,
		Repaired:    res.Repaired,
		Failures:    res.Failures,
		Stopped:     res.Stopped,
		Metrics:     res.Metrics,
	}
}

func prepare(meta *RunMetadata) {
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	if meta.ID == "" {
		meta.ID = NewRunID(meta.Rule, meta.Timestamp)
	}
}
