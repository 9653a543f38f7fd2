package tools

// InputSchema generates the JSON schema advertised for a tool from its field
// specs. Properties are keyed by the primary argument name; aliases stay
// accepted at canonicalization time but are not advertised.
func InputSchema(t Tool) map[string]any {
	properties := make(map[string]any, len(t.Fields))
	required := make([]string, 0)

	for _, f := range t.Fields {
		prop := map[string]any{}
		switch f.Kind {
		case KindString:
			prop["type"] = "string"
		case KindBool:
			prop["type"] = "boolean"
		case KindNumber:
			prop["type"] = "number"
		case KindJSON:
			prop["description"] = "JSON value, or a JSON-encoded string"
		}
		if f.Default != nil {
			prop["default"] = f.Default
		}
		properties[f.Names[0]] = prop
		if f.Required {
			required = append(required, f.Names[0])
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
