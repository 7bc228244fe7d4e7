package object

import "fmt"

// ObjectKind identifies the kind of a stored object.
type ObjectKind string

const (
	KindCommit ObjectKind = "commit"
	KindTree   ObjectKind = "tree"
	KindBlob   ObjectKind = "blob"
	KindTag    ObjectKind = "tag"
)

// ParseObjectKind validates a loose object header type.
func ParseObjectKind(s string) (ObjectKind, error) {
	switch k := ObjectKind(s); k {
	case KindCommit, KindTree, KindBlob, KindTag:
		return k, nil
	default:
		return "", fmt.Errorf("unknown object kind %q", s)
	}
}

// ObjectHeader returns the "kind len\0" envelope prefix.
func ObjectHeader(kind ObjectKind, size int) []byte {
	return []byte(fmt.Sprintf("%s %d\x00", kind, size))
}

func packObjectTypeToKind(t PackObjectType) (ObjectKind, bool) {
	switch t {
	case PackCommit:
		return KindCommit, true
	case PackTree:
		return KindTree, true
	case PackBlob:
		return KindBlob, true
	case PackTag:
		return KindTag, true
	default:
		return "", false
	}
}

// PackObjectType returns the pack entry type code for a kind.
func (k ObjectKind) PackObjectType() PackObjectType {
	switch k {
	case KindCommit:
		return PackCommit
	case KindTree:
		return PackTree
	case KindTag:
		return PackTag
	default:
		return PackBlob
	}
}
