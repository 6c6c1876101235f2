package catalog

import "encoding/json"

// remarshal copies a generic JSON value into dest so shared singleflight
// results are never aliased between callers.
func remarshal(v any, dest any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
