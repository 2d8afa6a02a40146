package tools

// Input accessors tolerant of the loosely typed argument maps the model
// produces. Wrong types fall back to the default rather than erroring.

func stringArg(input map[string]any, key, fallback string) string {
	if v, ok := input[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func intArg(input map[string]any, key string, fallback int) int {
	switch v := input[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}

func boolArg(input map[string]any, key string) bool {
	v, _ := input[key].(bool)
	return v
}
