package risk

import (
	"encoding/json"

	"github.com/n8kahl/dreambot/internal/model"
)

// toPayload round-trips an OrderRequest through JSON to the loosely typed
// map shape the stream fabric carries.
func toPayload(req model.OrderRequest) (map[string]any, error) {
	return jsonToMap(req)
}

func commandPayload(cmd model.OrderCommand) (map[string]any, error) {
	return jsonToMap(cmd)
}

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
