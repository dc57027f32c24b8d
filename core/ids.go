package core

// IDSlotSize is the fixed on-disk size of an id, terminator included.
// Fixed slots keep the ids segment addressable by record number with no
// per-record indirection, and 64 bytes fits UUIDs and short descriptive
// names.
const IDSlotSize = 64

// MaxIDLen is the maximum id length in bytes (one byte is reserved for the
// null terminator in the on-disk slot).
const MaxIDLen = IDSlotSize - 1

// MaxNameLen is the maximum collection name length in bytes.
const MaxNameLen = 63

// ValidID reports whether id is a legal item id: non-empty, at most
// MaxIDLen bytes, printable ASCII only.
func ValidID(id string) bool {
	if id == "" || len(id) > MaxIDLen {
		return false
	}
	return printableASCII(id)
}

// ValidName reports whether name is a legal collection name: non-empty, at
// most MaxNameLen bytes, printable ASCII only. Path separators and dot
// names are rejected since the name becomes a directory entry.
func ValidName(name string) bool {
	if name == "" || len(name) > MaxNameLen {
		return false
	}
	if name == "." || name == ".." {
		return false
	}
	for i := 0; i < len(name); i++ {
		if name[i] == '/' || name[i] == '\\' {
			return false
		}
	}
	return printableASCII(name)
}

// printableASCII matches C's isprint over unsigned chars: the on-disk id
// slots are null-padded ASCII, so multi-byte runes are rejected.
func printableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return false
		}
	}
	return true
}
