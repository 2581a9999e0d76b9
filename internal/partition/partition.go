package partition

import (
	"DistWordFreq/internal/types"
)

// RoundRobin assigns file i to partition i mod workers. Every file lands in
// exactly one partition, sizes differ by at most one, and input order is kept
// within each partition.
func RoundRobin(files []string, workers int) ([]types.Partition, error) {
	if workers <= 0 {
		return nil, &types.ConfigError{Field: "workers", Reason: "must be >= 1"}
	}

	parts := make([]types.Partition, workers)
	for i := range parts {
		parts[i] = types.Partition{Index: i, Files: make([]string, 0, len(files)/workers+1)}
	}
	for i, f := range files {
		p := &parts[i%workers]
		p.Files = append(p.Files, f)
	}
	return parts, nil
}
