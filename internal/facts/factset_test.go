package facts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMergeNeverOverwritesWithUnknown(t *testing.T) {
	reg := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	acc := FactSet{
		RegistrationDate: &reg,
		Nameservers:      []string{"ns1.example.net"},
		SecurityLock:     Bool(false),
	}

	acc.Merge(FactSet{Nameservers: []string{"", "  "}})

	assert.Equal(t, &reg, acc.RegistrationDate)
	assert.Equal(t, []string{"ns1.example.net"}, acc.Nameservers)
	if assert.NotNil(t, acc.SecurityLock) {
		assert.False(t, *acc.SecurityLock)
	}
}

func TestMergeOverwritesKnownValues(t *testing.T) {
	acc := FactSet{SecurityLock: Bool(false), ExpirationDate: Time(time.Unix(0, 0))}
	exp := time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC)

	acc.Merge(FactSet{SecurityLock: Bool(true), ExpirationDate: &exp})

	assert.True(t, *acc.SecurityLock)
	assert.Equal(t, exp, *acc.ExpirationDate)
}

func TestMergeReplacesNameserversDeduplicated(t *testing.T) {
	acc := FactSet{Nameservers: []string{"ns1.a.com", "ns2.a.com"}}
	acc.Merge(FactSet{Nameservers: []string{"ns3.b.com", "", "NS3.B.COM", "ns4.b.com"}})

	assert.Equal(t, []string{"ns3.b.com", "ns4.b.com"}, acc.Nameservers)
}

func TestMergeIsIdempotent(t *testing.T) {
	reg := time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)
	in := FactSet{RegistrationDate: &reg, Nameservers: []string{"ns1.x.id", "ns2.x.id"}, WhoisPrivacy: Bool(true)}

	once := FactSet{}
	once.Merge(in)
	twice := once
	twice.Nameservers = append([]string{}, once.Nameservers...)
	twice.Merge(in)

	assert.Equal(t, once, twice)
}

func TestIsComplete(t *testing.T) {
	d := Time(time.Now())
	cases := []struct {
		name string
		fs   FactSet
		want bool
	}{
		{"empty", FactSet{}, false},
		{"dates_only", FactSet{RegistrationDate: d, ExpirationDate: d}, false},
		{"missing_registration", FactSet{ExpirationDate: d, Nameservers: []string{"ns"}}, false},
		{"missing_expiration", FactSet{RegistrationDate: d, Nameservers: []string{"ns"}}, false},
		{"complete", FactSet{RegistrationDate: d, ExpirationDate: d, Nameservers: []string{"ns"}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.fs.IsComplete())
		})
	}
}

func TestCleanNameservers(t *testing.T) {
	assert.Nil(t, CleanNameservers(nil))
	assert.Nil(t, CleanNameservers([]string{" ", ""}))
	assert.Equal(t, []string{"a", "b"}, CleanNameservers([]string{" a ", "b", "A"}))
}
