package ingest

import "encoding/json"

// jsonToMap round-trips v through JSON to produce the map[string]any shape
// the stream fabric publishes, matching the decode helper used by the
// other stages' services.
func jsonToMap(v any) (map[string]any, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(buf, &out); err != nil {
		return nil, err
	}
	return out, nil
}
