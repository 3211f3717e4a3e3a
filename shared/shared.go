package shared

import (
	"parcel/shared/constant"
	"strings"
)

const cacheKeySeparator = ":"

// BuildCacheKey joins a prefix and its parts into a namespaced key, skipping empty parts.
func BuildCacheKey(prefix string, parts ...string) string {
	key := []string{prefix}

	for _, part := range parts {
		if part == constant.Empty {
			continue
		}

		key = append(key, part)
	}

	return strings.Join(key, cacheKeySeparator)
}

// ValueOrDefault returns value unless it is empty.
func ValueOrDefault(value, fallback string) string {
	if value == constant.Empty {
		return fallback
	}

	return value
}
