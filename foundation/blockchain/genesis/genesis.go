// Package genesis maintains access to the genesis parameters.
package genesis

import (
	"encoding/json"
	"os"
	"time"
)

// DefaultDifficulty is the number of leading hex zeros a block hash needs
// when no genesis file overrides it.
const DefaultDifficulty = 4

// Genesis represents the genesis file.
type Genesis struct {
	Date       time.Time `json:"date"`       // Timestamp of the genesis block, nodes need to agree on it.
	Difficulty uint      `json:"difficulty"` // How difficult it needs to be to solve the work problem.
}

// Default returns the genesis used when no file is provided.
func Default() Genesis {
	return Genesis{
		Date:       time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Difficulty: DefaultDifficulty,
	}
}

// =============================================================================

// Load opens and consumes the genesis file. Fields missing from the
// file keep their default value.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	genesis := Default()
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}
