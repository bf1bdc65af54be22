package models

import (
	"strconv"
	"strings"

	dErrors "acadmin/pkg/domain-errors"
)

// ObjectRef is an object identifier that is either a numeric id or a
// natural code. Raw is always kept so a numeric-looking code can still be
// resolved by code when the table has no numeric primary key.
type ObjectRef struct {
	raw     string
	id      int64
	numeric bool
}

// ParseObjectRef classifies raw once at the dispatch boundary.
func ParseObjectRef(raw string) ObjectRef {
	raw = strings.TrimSpace(raw)
	ref := ObjectRef{raw: raw}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n >= 0 && !strings.HasPrefix(raw, "+") {
		ref.id = n
		ref.numeric = true
	}
	return ref
}

// ByID reports the numeric form when the identifier is all digits.
func (r ObjectRef) ByID() (int64, bool) {
	return r.id, r.numeric
}

// Code is the identifier as a natural code.
func (r ObjectRef) Code() string {
	return r.raw
}

func (r ObjectRef) IsZero() bool {
	return r.raw == ""
}

func (r ObjectRef) String() string {
	return r.raw
}

// StructureKind is the granularity of a semester structure row.
type StructureKind string

const (
	StructureDegree  StructureKind = "degree"
	StructureProgram StructureKind = "program"
	StructureBranch  StructureKind = "branch"
)

// StructureKey is the composite "kind:key" object id of semesters.edit_structure.
// Key is a degree code for degree kind and a numeric id otherwise.
type StructureKey struct {
	Kind StructureKind
	Key  string
}

func ParseStructureKey(raw string) (StructureKey, error) {
	kind, key, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return StructureKey{}, dErrors.New(dErrors.CodeValidation, "structure key must be kind:key")
	}
	sk := StructureKey{Kind: StructureKind(strings.ToLower(strings.TrimSpace(kind))), Key: strings.TrimSpace(key)}
	if sk.Key == "" {
		return StructureKey{}, dErrors.New(dErrors.CodeValidation, "structure key is missing its key part")
	}
	switch sk.Kind {
	case StructureDegree:
	case StructureProgram, StructureBranch:
		if _, err := strconv.ParseInt(sk.Key, 10, 64); err != nil {
			return StructureKey{}, dErrors.New(dErrors.CodeValidation, string(sk.Kind)+" structure key must be a numeric id")
		}
	default:
		return StructureKey{}, dErrors.New(dErrors.CodeValidation, "unknown structure kind "+string(sk.Kind))
	}
	return sk, nil
}

// ID returns the numeric key for program and branch kinds.
func (k StructureKey) ID() int64 {
	n, _ := strconv.ParseInt(k.Key, 10, 64)
	return n
}

func (k StructureKey) String() string {
	return string(k.Kind) + ":" + k.Key
}
