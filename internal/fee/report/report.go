package report

import (
	"context"
	"io"
	"time"

	feedomain "github.com/smallbiznis/domainledger/internal/fee/domain"
	registrardomain "github.com/smallbiznis/domainledger/internal/registrar/domain"
	"go.uber.org/fx"
)

type Params struct {
	fx.In

	Fees       feedomain.Service
	Registrars registrardomain.Service
}

// Report loads the stored fees and renders the comparison.
type Report struct {
	fees       feedomain.Service
	registrars registrardomain.Service
	now        func() time.Time
}

func New(p Params) *Report {
	return &Report{fees: p.Fees, registrars: p.Registrars, now: time.Now}
}

func (r *Report) Matrix(ctx context.Context) (Matrix, error) {
	registrars, err := r.registrars.List(ctx)
	if err != nil {
		return Matrix{}, err
	}
	fees, err := r.fees.ListAll(ctx)
	if err != nil {
		return Matrix{}, err
	}
	return BuildMatrix(registrars, fees), nil
}

func (r *Report) WriteXLSX(ctx context.Context, w io.Writer) error {
	m, err := r.Matrix(ctx)
	if err != nil {
		return err
	}
	return WriteXLSX(m, w)
}

func (r *Report) WritePDF(ctx context.Context, w io.Writer) error {
	m, err := r.Matrix(ctx)
	if err != nil {
		return err
	}
	return WritePDF(m, r.now(), w)
}
