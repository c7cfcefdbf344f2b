package dataset

import (
	"strconv"
	"strings"
	"time"

	gbdterrors "github.com/ezoic/gbdtcore/pkg/errors"
)

// ColumnRef identifies a column either by name ("name:label") or by a
// bare numeric index, matching spec.md §6's "label_column" family of
// options.
type ColumnRef struct {
	Name    string
	Index   int
	ByIndex bool
}

// ParseColumnRef parses "name:<column>" (by header name) or a bare
// integer (by zero-based index). An empty string means "unset" and is
// not a valid input to this function; callers check for "" first.
func ParseColumnRef(option, raw string) (ColumnRef, error) {
	if name, ok := strings.CutPrefix(raw, "name:"); ok {
		if name == "" {
			return ColumnRef{}, gbdterrors.NewConfigError(option, "empty column name after \"name:\"")
		}
		return ColumnRef{Name: name}, nil
	}
	idx, err := strconv.Atoi(raw)
	if err != nil {
		return ColumnRef{}, gbdterrors.NewConfigError(option, "expected \"name:<column>\" or a numeric index, got "+strconv.Quote(raw))
	}
	if idx < 0 {
		return ColumnRef{}, gbdterrors.NewConfigError(option, "column index must be non-negative")
	}
	return ColumnRef{Index: idx, ByIndex: true}, nil
}

// Resolve maps a ColumnRef against a header to a concrete index.
func (c ColumnRef) Resolve(header []string) (int, error) {
	if c.ByIndex {
		return c.Index, nil
	}
	for i, h := range header {
		if h == c.Name {
			return i, nil
		}
	}
	return -1, gbdterrors.NewConfigError("column", "no column named "+strconv.Quote(c.Name))
}

// IOParams carries spec.md §6's dataset-construction options.
type IOParams struct {
	MaxBin         int
	IsEnableSparse bool
	LabelColumn    *ColumnRef
	WeightColumn   *ColumnRef
	GroupColumn    *ColumnRef
	IgnoreColumns  []ColumnRef
	IsPrePartition bool
}

// DefaultIOParams matches the teacher's default construction options.
func DefaultIOParams() IOParams {
	return IOParams{MaxBin: 255, IsEnableSparse: true}
}

// TrainingParams carries spec.md §6's tree-growth options, the Go-side
// mirror of the teacher's TrainingParams in trainer.go.
type TrainingParams struct {
	NumLeaves            int
	MinDataInLeaf        int
	MinSumHessianInLeaf  float64
	FeatureFraction      float64
	FeatureFractionSeed  int64
	MaxDepth             int
	Lambda               float64
	HistogramPoolSizeMiB float64
}

// NetworkConfig carries spec.md §6's distributed-mode options.
type NetworkConfig struct {
	NumMachines         int
	LocalListenPort     int
	MachineListFilename string
	TimeOut             time.Duration
}

// DistributedConfig binds IOParams and NetworkConfig together so the
// cross-cutting validation in NewDistributedConfig (ranking data cannot
// be sharded across workers without a pre-partition) can see both at
// once.
type DistributedConfig struct {
	IO      IOParams
	Network NetworkConfig
}

// NewDistributedConfig validates io/net together, rejecting the one
// combination the original source treats as fatal: distributing ranking
// data (group_column set) across more than one machine without having
// pre-partitioned the file per worker. Resolves spec.md's Open Question
// #3.
func NewDistributedConfig(io IOParams, net NetworkConfig) (DistributedConfig, error) {
	if net.NumMachines > 1 && io.GroupColumn != nil && !io.IsPrePartition {
		return DistributedConfig{}, gbdterrors.NewConfigError(
			"group_column",
			"distributing ranking data across num_machines>1 requires is_pre_partition; the core does not reshuffle queries across workers",
		)
	}
	return DistributedConfig{IO: io, Network: net}, nil
}
