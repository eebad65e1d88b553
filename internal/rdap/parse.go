package rdap

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/smallbiznis/domainledger/internal/facts"
)

type event struct {
	Action string `json:"eventAction"`
	Date   string `json:"eventDate"`
}

type nameserver struct {
	LDHName string `json:"ldhName"`
}

// document is the subset of an RDAP domain object the pipeline reads.
type document struct {
	Events      []event         `json:"events"`
	Nameservers []nameserver    `json:"nameservers"`
	Status      []string        `json:"status"`
	Entities    json.RawMessage `json:"entities"`
	Remarks     json.RawMessage `json:"remarks"`
	Notices     json.RawMessage `json:"notices"`
	Redacted    json.RawMessage `json:"redacted"`
}

func (d document) facts() facts.FactSet {
	fs := facts.FactSet{
		RegistrationDate: d.eventDate("registration"),
		ExpirationDate:   d.eventDate("expiration"),
		SecurityLock:     facts.Bool(d.transferLocked()),
		WhoisPrivacy:     facts.Bool(d.privacyHinted()),
	}
	for _, ns := range d.Nameservers {
		if host := strings.TrimSpace(ns.LDHName); host != "" {
			fs.Nameservers = append(fs.Nameservers, strings.ToLower(host))
		}
	}
	return fs
}

func (d document) eventDate(action string) *time.Time {
	for _, e := range d.Events {
		if !strings.EqualFold(e.Action, action) || strings.TrimSpace(e.Date) == "" {
			continue
		}
		t, ok := parseTime(e.Date)
		if !ok {
			return nil
		}
		return &t
	}
	return nil
}

func (d document) transferLocked() bool {
	for _, s := range d.Status {
		s = strings.ToLower(s)
		if strings.Contains(s, "transfer prohibited") || strings.Contains(s, "transferprohibited") {
			return true
		}
	}
	return false
}

// privacyHinted looks for redaction or privacy markers in the contact-bearing sections.
func (d document) privacyHinted() bool {
	for _, raw := range []json.RawMessage{d.Entities, d.Remarks, d.Notices, d.Redacted} {
		lower := bytes.ToLower(raw)
		if bytes.Contains(lower, []byte("redacted")) || bytes.Contains(lower, []byte("privacy")) {
			return true
		}
	}
	return false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
