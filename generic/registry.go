/*
registry.go - Category registration and lookup

PURPOSE:
  Provides a registry for domain packages to register the labels they
  accept from forms and from the spreadsheet: leave types, billing types,
  leave sessions. Lookups are case-insensitive and return the canonical
  spelling, so "casual leave" read from a sheet cell becomes "Casual Leave".

HOW IT WORKS:
  1. Domain packages define Category implementations
  2. Domain packages register them on init()
  3. Decoders and validators resolve raw strings through the registry

USAGE:
  // In timesheet/types.go
  func init() {
      generic.RegisterCategory(LeaveCasual)
  }

  c := generic.LookupCategory("leave", "casual leave") // LeaveCasual

SEE ALSO:
  - timesheet/types.go: LeaveType, BillingType, Session
*/
package generic

import (
	"sort"
	"strings"
	"sync"
)

// Category is a labelled value belonging to a domain ("leave", "billing", ...).
type Category interface {
	CategoryID() string
	CategoryDomain() string
}

// =============================================================================
// CATEGORY REGISTRY
// =============================================================================

var (
	categoryRegistry = make(map[categoryKey]Category)
	registryMu       sync.RWMutex
)

type categoryKey struct {
	domain string
	id     string
}

func keyFor(domain, id string) categoryKey {
	return categoryKey{domain: domain, id: strings.ToLower(strings.TrimSpace(id))}
}

// RegisterCategory adds a category to the global registry.
// Call this from domain package init() functions.
func RegisterCategory(c Category) {
	registryMu.Lock()
	defer registryMu.Unlock()
	categoryRegistry[keyFor(c.CategoryDomain(), c.CategoryID())] = c
}

// LookupCategory finds a registered category by domain and label.
// Returns nil if not found.
func LookupCategory(domain, id string) Category {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return categoryRegistry[keyFor(domain, id)]
}

// ListCategories returns the registered categories of a domain, sorted by ID.
func ListCategories(domain string) []Category {
	registryMu.RLock()
	defer registryMu.RUnlock()
	var result []Category
	for k, c := range categoryRegistry {
		if k.domain == domain {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CategoryID() < result[j].CategoryID() })
	return result
}

// =============================================================================
// STRING CATEGORY - Fallback for unregistered labels
// =============================================================================

// StringCategory carries a label nobody registered. Historical sheet rows
// may hold labels that were later retired; they still have to load.
type StringCategory struct {
	ID     string
	Domain string
}

func (c StringCategory) CategoryID() string     { return c.ID }
func (c StringCategory) CategoryDomain() string { return c.Domain }

// GetOrCreateCategory looks up a category, or returns a StringCategory fallback.
func GetOrCreateCategory(domain, id string) Category {
	if c := LookupCategory(domain, id); c != nil {
		return c
	}
	return StringCategory{ID: strings.TrimSpace(id), Domain: domain}
}
