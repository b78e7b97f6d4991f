package com

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// GUID has the in-memory layout of the Windows GUID structure, so a *GUID can
// be handed to native code as REFIID/REFGUID.
type GUID struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

// ParseGUID parses the canonical textual form, with or without braces.
func ParseGUID(s string) (GUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return GUID{}, fmt.Errorf("parse guid %q: %w", s, err)
	}
	return GUIDFromUUID(u), nil
}

// MustParseGUID is ParseGUID for package-level IID declarations.
func MustParseGUID(s string) GUID {
	g, err := ParseGUID(s)
	if err != nil {
		panic(err)
	}
	return g
}

// GUIDFromUUID converts the big-endian RFC 4122 byte order to the mixed-endian
// GUID layout.
func GUIDFromUUID(u uuid.UUID) GUID {
	var g GUID
	g.Data1 = binary.BigEndian.Uint32(u[0:4])
	g.Data2 = binary.BigEndian.Uint16(u[4:6])
	g.Data3 = binary.BigEndian.Uint16(u[6:8])
	copy(g.Data4[:], u[8:16])
	return g
}

// UUID returns g in RFC 4122 byte order.
func (g GUID) UUID() uuid.UUID {
	var u uuid.UUID
	binary.BigEndian.PutUint32(u[0:4], g.Data1)
	binary.BigEndian.PutUint16(u[4:6], g.Data2)
	binary.BigEndian.PutUint16(u[6:8], g.Data3)
	copy(u[8:16], g.Data4[:])
	return u
}

// IsZero reports whether g is GUID_NULL.
func (g GUID) IsZero() bool { return g == GUID{} }

func (g GUID) String() string {
	return "{" + g.UUID().String() + "}"
}

// IID_IUnknown is answered by every object.
var IID_IUnknown = MustParseGUID("00000000-0000-0000-C000-000000000046")
