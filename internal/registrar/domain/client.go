package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/domainledger/internal/facts"
	"github.com/smallbiznis/domainledger/internal/pricing"
)

// ErrCapabilityUnsupported is returned by optional operations a client does not offer.
var ErrCapabilityUnsupported = errors.New("capability_unsupported")

// Capabilities declares which optional operations of Client are implemented.
// Callers check these before invoking an optional method.
type Capabilities struct {
	DomainLookup    bool
	DomainRoster    bool
	DeferredPricing bool
	CredentialCheck bool
}

//go:generate mockgen -destination=../clients/mocks/mock_client.go -package=mocks github.com/smallbiznis/domainledger/internal/registrar/domain Client

// Client is the contract every registrar integration implements.
type Client interface {
	Code() Code
	Capabilities() Capabilities
	IsConfigured() bool
	GetPrices(ctx context.Context) ([]pricing.Quote, error)

	// GetDomains lists the account's domains. Requires DomainRoster.
	GetDomains(ctx context.Context) ([]facts.FactSet, error)
	// GetDomain looks up one domain. Requires DomainLookup.
	GetDomain(ctx context.Context, name string) (*facts.FactSet, error)
	// PriceCategories lists the deferred price phases. Requires DeferredPricing.
	PriceCategories() []string
	// GetPricesByType fetches one deferred phase. Requires DeferredPricing.
	GetPricesByType(ctx context.Context, category string) ([]pricing.Quote, error)
	// ValidateCredentials checks the stored credentials against the registrar.
	ValidateCredentials(ctx context.Context) error
}

// Unsupported provides ErrCapabilityUnsupported for every optional operation.
// Clients embed it and override what they support.
type Unsupported struct{}

func (Unsupported) GetDomains(context.Context) ([]facts.FactSet, error) {
	return nil, ErrCapabilityUnsupported
}

func (Unsupported) GetDomain(context.Context, string) (*facts.FactSet, error) {
	return nil, ErrCapabilityUnsupported
}

func (Unsupported) PriceCategories() []string { return nil }

func (Unsupported) GetPricesByType(context.Context, string) ([]pricing.Quote, error) {
	return nil, ErrCapabilityUnsupported
}

func (Unsupported) ValidateCredentials(context.Context) error {
	return ErrCapabilityUnsupported
}
