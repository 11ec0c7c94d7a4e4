package doctree

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// namespaceDNS is the RFC 4122 DNS namespace, 6ba7b810-9dad-11d1-80b4-00c04fd430c8.
var namespaceDNS = [16]byte{
	0x6b, 0xa7, 0xb8, 0x10, 0x9d, 0xad, 0x11, 0xd1,
	0x80, 0xb4, 0x00, 0xc0, 0x4f, 0xd4, 0x30, 0xc8,
}

// partEscaper rewrites 0x01 as 0x01 0x01 and NUL as 0x01 0x02, so an escaped
// part never contains NUL and never contains 0x01 followed by anything else.
var partEscaper = strings.NewReplacer("\x01", "\x01\x01", "\x00", "\x01\x02")

// GenerateID derives a stable identifier from an ordered list of parts. The
// parts are escaped, joined with NUL bytes and hashed into a name-based
// (version 5) UUID: identical lists yield identical IDs and distinct lists,
// such as ["A B"] and ["A", "B"], yield distinct ones. A single part without
// control bytes hashes exactly like a plain version 5 UUID of that name.
func GenerateID(parts []string) string {
	h := sha1.New()
	h.Write(namespaceDNS[:])
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		partEscaper.WriteString(h, p)
	}
	sum := h.Sum(nil)

	var u [16]byte
	copy(u[:], sum[:16])
	u[6] = (u[6] & 0x0f) | 0x50
	u[8] = (u[8] & 0x3f) | 0x80

	var buf [36]byte
	hex.Encode(buf[0:8], u[0:4])
	buf[8] = '-'
	hex.Encode(buf[9:13], u[4:6])
	buf[13] = '-'
	hex.Encode(buf[14:18], u[6:8])
	buf[18] = '-'
	hex.Encode(buf[19:23], u[8:10])
	buf[23] = '-'
	hex.Encode(buf[24:], u[10:])
	return string(buf[:])
}
