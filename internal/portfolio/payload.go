package portfolio

import "encoding/json"

// decode round-trips a loosely typed stream-fabric payload map into a
// struct through JSON, matching the decode idiom used across the other
// pipeline stages.
func decode[T any](payload map[string]any) (T, error) {
	var out T
	body, err := json.Marshal(payload)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, err
	}
	return out, nil
}

// snapshotPayload round-trips a Snapshot to the map shape the stream fabric
// publishes.
func snapshotPayload(snap Snapshot) (map[string]any, error) {
	body, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return out, nil
}
