package keyfactory

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/holmberd/go-objectbinder/keyfactory/internal/rediskey"
)

var namespacePattern = regexp.MustCompile(`^(?P<namespace>__\w+__)[:]?`) // https://regex101.com/r/JanbQ8/1

// ParseRedisKey parses a Redis key into a Key.
//
// Example:
//
//	key, _ := ParseRedisKey("__app1__:blob:reports:q1.csv")
//	// key  => *Key{key: "blob:reports:q1.csv", namespace: "__app1__"}
func ParseRedisKey(key string) (*Key, error) {
	if err := rediskey.Validate(key); err != nil {
		return nil, fmt.Errorf("keyfactory: failed to parse redis key '%s': %w", key, err)
	}
	var namespace string

	// Extract namespace if present.
	if matches := namespacePattern.FindStringSubmatch(key); len(matches) > 0 {
		full := matches[0]
		namespace = matches[1]

		// Trim suffix/prefix since NewKey() applies them.
		namespace = strings.TrimSuffix(
			strings.TrimPrefix(namespace, ReservedNamespaceDelimiter),
			ReservedNamespaceDelimiter,
		)
		key = strings.TrimPrefix(key, full)
	}
	return NewKey(key, namespace), nil
}

// ParseBlobKey parses the location out of a blob Redis key.
func ParseBlobKey(redisKey string) (Location, error) {
	key, err := ParseRedisKey(redisKey)
	if err != nil {
		return Location{}, err
	}
	parts := rediskey.Split(key.Key(), 3)
	if len(parts) != 3 || parts[0] != string(KindBlob) {
		return Location{}, fmt.Errorf("keyfactory: '%s' is not a blob key", redisKey)
	}
	return NewLocation(parts[1], parts[2])
}

// ParseObjectKey parses the object kind and ID out of an object Redis key.
func ParseObjectKey(redisKey string) (objectKind string, id string, err error) {
	key, err := ParseRedisKey(redisKey)
	if err != nil {
		return "", "", err
	}
	parts := rediskey.Split(key.Key(), 3)
	if len(parts) != 3 || parts[0] != string(KindObject) {
		return "", "", fmt.Errorf("keyfactory: '%s' is not an object key", redisKey)
	}
	return parts[1], parts[2], nil
}
