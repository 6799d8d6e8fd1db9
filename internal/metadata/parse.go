package metadata

import (
	"encoding/json"
	"errors"

	"github.com/graphprotocol/graph-network-analytics-subgraph/internal/model"
)

// ErrNotObject is returned for documents that are not a JSON object.
var ErrNotObject = errors.New("metadata is not a JSON object")

// Parse reads an account metadata document. Fields of the wrong type are
// treated as absent; only a non-object document is an error.
func Parse(data []byte) (model.GraphAccountMetadata, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		return model.GraphAccountMetadata{}, ErrNotObject
	}

	meta := model.GraphAccountMetadata{
		CodeRepository: stringField(obj, "codeRepository"),
		Description:    stringField(obj, "description"),
		Image:          stringField(obj, "image"),
		DisplayName:    stringField(obj, "displayName"),
		Website:        stringField(obj, "website"),
	}
	if raw, ok := obj["isOrganization"]; ok {
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil && string(raw) != "null" {
			meta.IsOrganization = &b
		}
	}
	return meta, nil
}

func stringField(obj map[string]json.RawMessage, key string) string {
	raw, ok := obj[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
