package remote

import (
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"github.com/steveyegge/kanbeads/internal/types"
)

// codec is std-compatible so that TextMarshaler IDs and priorities encode
// the same way everywhere.
var codec = sonic.ConfigStd

// Marshal encodes v with the store codec.
func Marshal(v any) ([]byte, error) {
	return codec.Marshal(v)
}

// MarshalIndent encodes v with the store codec for humans to read.
func MarshalIndent(v any) ([]byte, error) {
	return codec.MarshalIndent(v, "", "  ")
}

// Unmarshal decodes data into v with the store codec.
func Unmarshal(data []byte, v any) error {
	return codec.Unmarshal(data, v)
}

// Server-computed fields
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// Stamp sets the server-computed fields of a body: the assigned id, the
// creation time (unless the body already carries one) and the update time.
func Stamp(body []byte, id string, now time.Time) ([]byte, error) {
	doc, err := decodeObject(body)
	if err != nil {
		return nil, err
	}
	doc[FieldID] = id
	if v, ok := doc[FieldCreatedAt].(string); !ok || v == "" || v == zeroTime {
		doc[FieldCreatedAt] = now.UTC().Format(time.RFC3339Nano)
	}
	doc[FieldUpdatedAt] = now.UTC().Format(time.RFC3339Nano)
	return codec.Marshal(doc)
}

// MergePatch applies updates to body shallowly. The id cannot be patched.
func MergePatch(body []byte, updates map[string]any, now time.Time) ([]byte, error) {
	doc, err := decodeObject(body)
	if err != nil {
		return nil, err
	}
	for k, v := range updates {
		if k == FieldID || k == FieldCreatedAt {
			continue
		}
		if v == nil {
			delete(doc, k)
			continue
		}
		doc[k] = v
	}
	doc[FieldUpdatedAt] = now.UTC().Format(time.RFC3339Nano)
	return codec.Marshal(doc)
}

var zeroTime = time.Time{}.Format(time.RFC3339)

func decodeObject(body []byte) (map[string]any, error) {
	doc := map[string]any{}
	if len(body) == 0 {
		return doc, nil
	}
	if err := codec.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// encodeEntity renders an outgoing entity body without its id.
func encodeEntity(e any) ([]byte, error) {
	raw, err := codec.Marshal(e)
	if err != nil {
		return nil, err
	}
	doc, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	delete(doc, FieldID)
	return codec.Marshal(doc)
}

// normalizeUpdates turns typed update values into their JSON form and
// refuses temporary IDs. Dependency lists lose their temporary targets.
func normalizeUpdates(updates map[string]any) (map[string]any, error) {
	clean := make(map[string]any, len(updates))
	for k, v := range updates {
		switch val := v.(type) {
		case types.ID:
			if val.IsTemp() {
				return nil, fmt.Errorf("%w: %s=%s", ErrTemporaryReference, k, val)
			}
		case []types.Dependency:
			c := &types.Card{Dependencies: val}
			c = c.Clone()
			c.StripTempReferences()
			v = c.Dependencies
		}
		clean[k] = v
	}
	raw, err := codec.Marshal(clean)
	if err != nil {
		return nil, fmt.Errorf("encode updates: %w", err)
	}
	out := map[string]any{}
	if err := codec.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("encode updates: %w", err)
	}
	return out, nil
}
