package capability

import (
	"encoding/json"
	"fmt"
)

func marshalNames(names []string) ([]byte, error) {
	return json.Marshal(names)
}

// unmarshalNames accepts a list of names, a single name, or null.
func unmarshalNames(data []byte) ([]string, error) {
	var names []string
	if err := json.Unmarshal(data, &names); err == nil {
		return names, nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("expected a list of names: %w", err)
	}
	return []string{single}, nil
}
