// Package facts holds the domain fact accumulator shared by the registrar, RDAP and
// WHOIS sources.
package facts

import (
	"strings"
	"time"
)

// FactSet is what one source knows about a domain. Nil fields are unknown.
type FactSet struct {
	Name             string
	RegistrationDate *time.Time
	ExpirationDate   *time.Time
	Nameservers      []string
	SecurityLock     *bool
	WhoisPrivacy     *bool
}

// Merge folds incoming into fs. Unknown values never overwrite known ones. A nameserver
// list replaces the current one only when it still has entries after blanks are dropped,
// and it is stored de-duplicated in first-seen order.
func (fs *FactSet) Merge(incoming FactSet) {
	if name := strings.TrimSpace(incoming.Name); name != "" {
		fs.Name = name
	}
	if incoming.RegistrationDate != nil {
		fs.RegistrationDate = incoming.RegistrationDate
	}
	if incoming.ExpirationDate != nil {
		fs.ExpirationDate = incoming.ExpirationDate
	}
	if incoming.SecurityLock != nil {
		fs.SecurityLock = incoming.SecurityLock
	}
	if incoming.WhoisPrivacy != nil {
		fs.WhoisPrivacy = incoming.WhoisPrivacy
	}

	filtered := CleanNameservers(incoming.Nameservers)
	if len(filtered) == 0 {
		return
	}
	fs.Nameservers = filtered
}

// IsComplete reports whether both dates and at least one nameserver are known.
func (fs FactSet) IsComplete() bool {
	return fs.RegistrationDate != nil && fs.ExpirationDate != nil && len(fs.Nameservers) > 0
}

// CleanNameservers trims, drops blanks and removes case-insensitive duplicates while
// keeping the first spelling and order.
func CleanNameservers(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, ns := range in {
		ns = strings.TrimSpace(ns)
		if ns == "" {
			continue
		}
		key := strings.ToLower(strings.TrimSuffix(ns, "."))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, ns)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func Bool(v bool) *bool { return &v }

func Time(t time.Time) *time.Time { return &t }
