package server

import (
	"errors"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
)

const maxListLimit = 200

func parseOptionalInt(value string) (*int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// parseLimit falls back to def when value is empty and clamps to
// maxListLimit.
func parseLimit(value string, def int) (int, error) {
	parsed, err := parseOptionalInt(value)
	if err != nil || (parsed != nil && *parsed <= 0) {
		return 0, newValidationError("limit", "invalid_limit", "limit must be a positive integer")
	}
	if parsed == nil {
		return def, nil
	}
	if *parsed > maxListLimit {
		return maxListLimit, nil
	}
	return *parsed, nil
}

func parseOptionalSnowflakeID(value string) (*snowflake.ID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := snowflake.ParseString(trimmed)
	if err != nil || parsed <= 0 {
		return nil, errors.New("invalid_snowflake_id")
	}
	return &parsed, nil
}
