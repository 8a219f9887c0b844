package envelope

import "context"

// FieldMasker is a sample Transformer that redacts a fixed set of
// top-level map keys from a map[string]any payload. Consumers with
// struct payloads typically supply their own Transformer instead; this
// one exists for the common case of forwarding an already-decoded JSON
// body where specific keys (e.g. "ssn", "password") must never reach
// the broker.
type FieldMasker struct {
	Fields      []string
	Replacement string
}

// NewFieldMasker builds a FieldMasker redacting fields to "***".
func NewFieldMasker(fields ...string) *FieldMasker {
	return &FieldMasker{Fields: fields, Replacement: "***"}
}

func (m *FieldMasker) Transform(_ context.Context, payload any) (any, error) {
	asMap, ok := payload.(map[string]any)
	if !ok {
		return payload, nil
	}

	masked := make(map[string]any, len(asMap))
	for k, v := range asMap {
		masked[k] = v
	}

	for _, field := range m.Fields {
		if _, present := masked[field]; present {
			masked[field] = m.Replacement
		}
	}

	return masked, nil
}
