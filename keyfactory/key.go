// Package keyfactory builds the Redis keys under which blobs and objects are stored.
//
// Key structure: "<__namespace__>:<kind>:<parent>:<name>"
package keyfactory

import (
	"fmt"
	"strings"

	"github.com/holmberd/go-objectbinder/keyfactory/internal/rediskey"
)

const (
	WildcardAnyChar            = rediskey.WildcardAnyChar   // Matches exactly one character.
	WildcardAnyString          = rediskey.WildcardAnyString // Matches zero or more characters.
	ReservedNamespaceDelimiter = "__"                       // Wraps the namespace fragment.
)

// Kind is the first key fragment after the namespace, separating key spaces.
type Kind string

const (
	KindBlob   Kind = "blob"   // Stream bound blobs.
	KindObject Kind = "object" // Field map encoded objects.
)

// ValidateKeyFragment validates that f can be used as a single key fragment.
func ValidateKeyFragment(f string) error {
	if err := checkReserved(f); err != nil {
		return err
	}
	return rediskey.Validate(f)
}

// Key is a datastore key: a logical key and the namespace it lives in.
type Key struct {
	key       string // Logical key, starting with the kind.
	namespace string // Wrapped namespace, e.g. "__app__", or empty.
}

// NewKey returns a key in namespace. The namespace may be given bare or wrapped.
func NewKey(key string, namespace string) *Key {
	return &Key{key: key, namespace: wrapNamespace(namespace)}
}

func wrapNamespace(ns string) string {
	if ns == "" || strings.HasPrefix(ns, ReservedNamespaceDelimiter) {
		return ns
	}
	return ReservedNamespaceDelimiter + strings.ToLower(ns) + ReservedNamespaceDelimiter
}

func (k *Key) Key() string {
	return k.key
}

func (k *Key) Namespace() string {
	return k.namespace
}

// RedisKey returns the full Redis key, namespace included.
func (k *Key) RedisKey() string {
	return rediskey.Join(k.namespace, k.key)
}

// String returns the logical key without the namespace.
func (k *Key) String() string {
	if k == nil {
		return ""
	}
	return k.key
}

// KeyParts are the fragments of a key. Build validates each fragment and joins the non-empty ones.
//
// Without a Wildcard the parts name one key and must not contain glob characters.
// With a Wildcard they form a match pattern; only a Namespace and a Wildcard
// match the whole namespace.
//
// Example:
//
//	key, _ := KeyParts{Namespace: "app", Kind: KindBlob, Parent: "reports", Name: "q1.csv"}.Build()
//	fmt.Println(key.RedisKey()) // "__app__:blob:reports:q1.csv"
type KeyParts struct {
	Namespace string
	Kind      Kind
	Parent    string
	Name      string
	Wildcard  rediskey.GlobWildcard
}

func (p KeyParts) Build() (*Key, error) {
	for _, f := range []string{p.Namespace, string(p.Kind), p.Parent, p.Name} {
		if f == "" {
			continue
		}
		if err := ValidateKeyFragment(f); err != nil {
			return nil, fmt.Errorf("keyfactory: %w", err)
		}
	}
	if p.Wildcard == "" && rediskey.HasGlob(p.Parent+p.Name) {
		return nil, fmt.Errorf("keyfactory: key '%s' must not contain glob characters", p.Name)
	}

	key := rediskey.Join(string(p.Kind), p.Parent, p.Name)
	switch {
	case p.Wildcard == "":
	case key == "":
		key = string(p.Wildcard)
	default:
		key = rediskey.Pattern(key, p.Wildcard)
	}
	if key == "" {
		return nil, fmt.Errorf("keyfactory: key must not be empty")
	}
	return NewKey(key, p.Namespace), nil
}

func checkReserved(f string) error {
	if strings.HasPrefix(f, ReservedNamespaceDelimiter) {
		return fmt.Errorf(
			"key fragment '%s' must not start with reserved namespace delimiter '%s'",
			f, ReservedNamespaceDelimiter,
		)
	}
	return nil
}
