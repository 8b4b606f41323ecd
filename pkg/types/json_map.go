package types

// JSONMap is a loose payload blob stored as jsonb.
type JSONMap map[string]any
