// Package payers resolves payer display names from tax identification
// numbers (NIP) and back. The mapping is injected from configuration so
// deployments can maintain their own directory.
package payers

import (
	"strings"
)

// Directory is a read-only two-way lookup between NIPs and payer names.
type Directory struct {
	byNIP  map[string]string
	byName map[string]string
}

// NewDirectory builds a directory from a NIP -> name mapping. NIP keys are
// normalized to digits only; name lookup is case-insensitive.
func NewDirectory(mapping map[string]string) *Directory {
	d := &Directory{
		byNIP:  make(map[string]string, len(mapping)),
		byName: make(map[string]string, len(mapping)),
	}
	for nip, name := range mapping {
		clean := NormalizeNIP(nip)
		if clean == "" || name == "" {
			continue
		}
		d.byNIP[clean] = name
		d.byName[strings.ToLower(name)] = clean
	}
	return d
}

// NormalizeNIP strips every non-digit character from a NIP. Leading zeros
// are preserved; NIPs are identifiers, not numbers.
func NormalizeNIP(nip string) string {
	var b strings.Builder
	for _, r := range nip {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NameByNIP returns the payer name registered for a NIP, or "" if unknown.
func (d *Directory) NameByNIP(nip string) string {
	if nip == "" {
		return ""
	}
	return d.byNIP[NormalizeNIP(nip)]
}

// NIPByName returns the NIP registered for a payer name, or "" if unknown.
func (d *Directory) NIPByName(name string) string {
	if name == "" {
		return ""
	}
	return d.byName[strings.ToLower(name)]
}

// Size returns the number of registered payers.
func (d *Directory) Size() int {
	return len(d.byNIP)
}
