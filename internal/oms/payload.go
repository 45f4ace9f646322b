package oms

import "encoding/json"

// jsonToMap round-trips v through JSON into the loosely typed map shape the
// stream fabric carries.
func jsonToMap(v any) (map[string]any, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return out, nil
}
