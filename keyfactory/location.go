package keyfactory

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/holmberd/go-objectbinder/keyfactory/internal/rediskey"
)

const (
	containerMinLength = 3
	containerMaxLength = 63
	nameMaxLength      = 1024
	locationSeparator  = "/"
)

// Lowercase alphanumerics, single dashes between them.
var containerRegex = regexp.MustCompile(`^[a-z0-9](?:-?[a-z0-9])*$`)

// Location is the logical address of a blob: a container and a blob name within it.
type Location struct {
	Container string
	Name      string
}

// NewLocation returns a validated location.
func NewLocation(container, name string) (Location, error) {
	l := Location{Container: container, Name: name}
	if err := l.Validate(); err != nil {
		return Location{}, err
	}
	return l, nil
}

// ParseLocation parses a "container/name" path. The name may itself contain "/".
//
// Example:
//
//	loc, _ := ParseLocation("reports/2024/q1.csv")
//	// loc => Location{Container: "reports", Name: "2024/q1.csv"}
func ParseLocation(path string) (Location, error) {
	container, name, ok := strings.Cut(path, locationSeparator)
	if !ok {
		return Location{}, fmt.Errorf("keyfactory: location '%s' must have the form container/name", path)
	}
	return NewLocation(container, name)
}

// Validate validates the container and blob name.
func (l Location) Validate() error {
	if n := len(l.Container); n < containerMinLength || n > containerMaxLength {
		return fmt.Errorf(
			"keyfactory: container '%s' must be %d to %d characters",
			l.Container, containerMinLength, containerMaxLength,
		)
	}
	if !containerRegex.MatchString(l.Container) {
		return fmt.Errorf("keyfactory: container '%s' contains invalid characters", l.Container)
	}
	if l.Name == "" {
		return fmt.Errorf("keyfactory: blob name must not be empty")
	}
	if len(l.Name) > nameMaxLength {
		return fmt.Errorf("keyfactory: blob name exceeds %d characters", nameMaxLength)
	}
	if rediskey.HasGlob(l.Name) {
		return fmt.Errorf("keyfactory: blob name '%s' must not contain glob characters", l.Name)
	}
	if err := rediskey.Fragment(l.Name); err != nil {
		return fmt.Errorf("keyfactory: blob name: %w", err)
	}
	return checkReserved(l.Name)
}

func (l Location) String() string {
	return l.Container + locationSeparator + l.Name
}

// BlobKey returns the key of the blob at loc.
func BlobKey(namespace string, loc Location) (*Key, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	return KeyParts{Namespace: namespace, Kind: KindBlob, Parent: loc.Container, Name: loc.Name}.Build()
}

// BlobMatchKey returns a key pattern matching every blob in container.
func BlobMatchKey(namespace string, container string) (*Key, error) {
	return KeyParts{Namespace: namespace, Kind: KindBlob, Parent: container, Wildcard: WildcardAnyString}.Build()
}

// ObjectKey returns the key of an object of the given kind.
func ObjectKey(namespace string, objectKind string, id string) (*Key, error) {
	if objectKind == "" || id == "" {
		return nil, fmt.Errorf("keyfactory: object kind and ID must not be empty")
	}
	if strings.Contains(objectKind, rediskey.Delimiter) ||
		strings.Contains(id, rediskey.Delimiter) {
		return nil, fmt.Errorf("keyfactory: object kind and ID must not contain '%s'", rediskey.Delimiter)
	}
	return KeyParts{Namespace: namespace, Kind: KindObject, Parent: objectKind, Name: id}.Build()
}

// ObjectMatchKey returns a key pattern matching every object of the given kind.
func ObjectMatchKey(namespace string, objectKind string) (*Key, error) {
	return KeyParts{Namespace: namespace, Kind: KindObject, Parent: objectKind, Wildcard: WildcardAnyString}.Build()
}

// NamespaceMatchKey returns a key pattern matching every key in namespace.
func NamespaceMatchKey(namespace string) (*Key, error) {
	if namespace == "" {
		return nil, fmt.Errorf("keyfactory: namespace must not be empty")
	}
	return KeyParts{Namespace: namespace, Wildcard: WildcardAnyString}.Build()
}
