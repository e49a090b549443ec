package kvstore

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/example/lifebank/internal/core/errkind"
	corerequest "github.com/example/lifebank/internal/core/request"
	"github.com/example/lifebank/internal/ports/secondary"
)

// Key type prefixes. Index types reuse the index names.
const (
	KeyTypeRequest   = "REQUEST"
	KeyTypeMeta      = "META"
	KeyTypePrincipal = "ROLE~PRINCIPAL"

	metaAdmin   = "admin"
	metaCounter = "counter"
)

// marker is stored under index and registry keys. It is never empty because
// some ledgers treat an empty value as a delete.
var marker = []byte{0x00}

const (
	sep       = "\x00"
	namespace = "\x00"
)

// Key is a composite key: a type followed by ordered attributes.
// Its encoding matches the Fabric composite key format, so a prefix Key with
// fewer attributes selects every key that extends it.
type Key struct {
	Type  string
	Attrs []string
}

// String encodes k as namespace, type and attributes, each terminated by a NUL.
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(namespace)
	b.WriteString(k.Type)
	b.WriteString(sep)
	for _, a := range k.Attrs {
		b.WriteString(a)
		b.WriteString(sep)
	}
	return b.String()
}

// Validate rejects a key whose type or attributes are not valid UTF-8 or
// contain the separator, since String could not be reversed.
func (k Key) Validate() error {
	for _, part := range append([]string{k.Type}, k.Attrs...) {
		if !utf8.ValidString(part) || strings.Contains(part, sep) {
			return errkind.New(errkind.InvalidInput, "invalid composite key attribute %q", part)
		}
	}
	return nil
}

// ParseKey decodes an encoded composite key.
func ParseKey(s string) (Key, error) {
	if !strings.HasPrefix(s, namespace) || !strings.HasSuffix(s, sep) {
		return Key{}, fmt.Errorf("malformed composite key %q", s)
	}
	parts := strings.Split(strings.TrimSuffix(s[len(namespace):], sep), sep)
	return Key{Type: parts[0], Attrs: parts[1:]}, nil
}

// HasPrefix reports whether k extends prefix.
func (k Key) HasPrefix(prefix Key) bool {
	return strings.HasPrefix(k.String(), prefix.String())
}

// FormatID zero-pads id so that byte order equals numeric order.
func FormatID(id uint64) string {
	return fmt.Sprintf("%020d", id)
}

// ParseID reverses FormatID.
func ParseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid request id %q: %w", s, err)
	}
	return id, nil
}

func requestKey(id uint64) Key {
	return Key{Type: KeyTypeRequest, Attrs: []string{FormatID(id)}}
}

func indexKey(e corerequest.IndexEntry) Key {
	return Key{Type: string(e.Index), Attrs: []string{e.Key, FormatID(e.ID)}}
}

func indexPrefix(index corerequest.Index, key string) Key {
	return Key{Type: string(index), Attrs: []string{key}}
}

func metaKey(name string) Key {
	return Key{Type: KeyTypeMeta, Attrs: []string{name}}
}

func principalKey(role secondary.Role, principal string) Key {
	return Key{Type: KeyTypePrincipal, Attrs: []string{string(role), principal}}
}
