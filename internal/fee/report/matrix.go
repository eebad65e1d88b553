// Package report renders the cross-registrar price comparison.
package report

import (
	"sort"

	feedomain "github.com/smallbiznis/domainledger/internal/fee/domain"
	registrardomain "github.com/smallbiznis/domainledger/internal/registrar/domain"
)

// Cell holds one registrar's prices for a TLD.
type Cell struct {
	Register *float64 `json:"register_price"`
	Renew    *float64 `json:"renew_price"`
	Transfer *float64 `json:"transfer_price"`
}

// Row is one TLD. Cells line up with Matrix.Registrars; a nil cell means no fee row.
type Row struct {
	TLD   string  `json:"tld"`
	Cells []*Cell `json:"cells"`
	// Cheapest is the index of the lowest register price, or -1.
	Cheapest int `json:"cheapest"`
}

type Matrix struct {
	Registrars []registrardomain.Registrar `json:"registrars"`
	Rows       []Row                       `json:"rows"`
}

// BuildMatrix lays fees out per TLD and registrar. Fees of unknown registrars are ignored.
// Prices are compared as stored; currencies are not converted.
func BuildMatrix(registrars []registrardomain.Registrar, fees []feedomain.Fee) Matrix {
	index := make(map[int64]int, len(registrars))
	for i, r := range registrars {
		index[r.ID] = i
	}

	byTLD := map[string]*Row{}
	for _, fee := range fees {
		col, ok := index[fee.RegistrarID]
		if !ok {
			continue
		}
		row, ok := byTLD[fee.TLD]
		if !ok {
			row = &Row{TLD: fee.TLD, Cells: make([]*Cell, len(registrars)), Cheapest: -1}
			byTLD[fee.TLD] = row
		}
		row.Cells[col] = &Cell{Register: fee.RegisterPrice, Renew: fee.RenewPrice, Transfer: fee.TransferPrice}
	}

	m := Matrix{Registrars: registrars, Rows: make([]Row, 0, len(byTLD))}
	for _, row := range byTLD {
		row.Cheapest = cheapest(row.Cells)
		m.Rows = append(m.Rows, *row)
	}
	sort.Slice(m.Rows, func(i, j int) bool { return m.Rows[i].TLD < m.Rows[j].TLD })
	return m
}

func cheapest(cells []*Cell) int {
	best := -1
	for i, c := range cells {
		if c == nil || c.Register == nil || *c.Register <= 0 {
			continue
		}
		if best < 0 || *c.Register < *cells[best].Register {
			best = i
		}
	}
	return best
}
