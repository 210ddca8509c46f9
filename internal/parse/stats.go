package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/pders01/cclens/internal/models"
)

// ErrMalformed marks content that failed to parse, as opposed to a
// transient read error. Malformed content is never retried; the
// smallest possible unit is skipped and recorded instead.
var ErrMalformed = errors.New("malformed content")

// ParseStats reads the aggregate stats file whole. A malformed file
// returns ErrMalformed so the caller keeps the prior value; read
// errors surface as-is for the caller's retry policy.
func ParseStats(path string) (*models.AggregateStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var stats models.AggregateStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("%w: failed to parse stats file: %v", ErrMalformed, err)
	}
	return &stats, nil
}
