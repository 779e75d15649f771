package registry

import (
	"fmt"
	"strconv"
	"strings"
)

// typePrefixes maps the entity type vocabulary to 3-letter id prefixes.
// Types not listed here fall back to ENT.
var typePrefixes = map[string]string{
	TypeTargetCompany: "TGT",
	TypeManufacturer:  "MFR",
	TypeCustomer:      "CUS",
	TypeSite:          "SIT",
	TypeSubsidiary:    "SUB",
	TypePeer:          "PER",
	TypeSupplier:      "SUP",
}

const fallbackPrefix = "ENT"

// IDAllocator hands out stable, typed, human-readable entity ids such as
// MFR-006. Counters are per prefix and are seeded lazily, exactly once per
// allocator instance, by scanning the registry's existing ids for the highest
// numbered suffix of each known prefix. A fresh allocator therefore never
// collides with entities created by an earlier process, which is what makes
// resumed runs safe.
type IDAllocator struct {
	counters map[string]int
	seeded   bool
}

// NewIDAllocator creates an unseeded allocator.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{
		counters: make(map[string]int),
	}
}

// Allocate returns the next id for the given entity type. The target company
// is a singleton per run and always gets TGT-001.
func (a *IDAllocator) Allocate(entityType string, reg *Registry) string {
	if entityType == TypeTargetCompany {
		return TargetEntityID
	}

	if !a.seeded {
		a.seedFromRegistry(reg)
		a.seeded = true
	}

	prefix, ok := typePrefixes[entityType]
	if !ok {
		prefix = fallbackPrefix
	}

	a.counters[prefix]++
	return fmt.Sprintf("%s-%03d", prefix, a.counters[prefix])
}

// seedFromRegistry sets each prefix counter to the highest suffix currently
// present in the registry.
func (a *IDAllocator) seedFromRegistry(reg *Registry) {
	if reg == nil {
		return
	}

	known := make(map[string]bool, len(typePrefixes)+1)
	for _, p := range typePrefixes {
		known[p] = true
	}
	known[fallbackPrefix] = true

	for id := range reg.EntitiesByID {
		prefix, num, ok := splitEntityID(id)
		if !ok || !known[prefix] {
			continue
		}
		if num > a.counters[prefix] {
			a.counters[prefix] = num
		}
	}
}

func splitEntityID(id string) (string, int, bool) {
	prefix, suffix, found := strings.Cut(id, "-")
	if !found {
		return "", 0, false
	}
	num, err := strconv.Atoi(suffix)
	if err != nil {
		return "", 0, false
	}
	return prefix, num, true
}
