package results

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadCriteria reads the monitoring criteria from a JSON file.
func LoadCriteria(path string) (Criteria, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from operator configuration.
	if err != nil {
		return Criteria{}, &PersistenceError{Op: "read criteria", Err: err}
	}
	var c Criteria
	if err := json.Unmarshal(data, &c); err != nil {
		return Criteria{}, &PersistenceError{Op: "decode criteria", Err: fmt.Errorf("%s: %w", path, err)}
	}
	return c, nil
}
