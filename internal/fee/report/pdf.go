package report

import (
	"io"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/smallbiznis/domainledger/internal/pricing"
)

// WritePDF renders m as a printable list with one line per TLD and registrar.
func WritePDF(m Matrix, generatedAt time.Time, w io.Writer) error {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	doc := maroto.New(cfg)

	doc.AddRow(20,
		text.NewCol(8, "Registrar Price Comparison", props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, generatedAt.UTC().Format("2006-01-02 15:04 MST"), props.Text{
			Size:  9,
			Align: align.Right,
			Top:   4,
		}),
	)

	header := props.Text{Style: fontstyle.Bold, Size: 9}
	headerRight := props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}
	doc.AddRow(10,
		text.NewCol(2, "TLD", header),
		text.NewCol(4, "Registrar", header),
		text.NewCol(2, "Register", headerRight),
		text.NewCol(2, "Renew", headerRight),
		text.NewCol(2, "Transfer", headerRight),
	)

	cell := props.Text{Size: 9}
	cellRight := props.Text{Size: 9, Align: align.Right}
	for _, row := range m.Rows {
		for i, c := range row.Cells {
			if c == nil {
				continue
			}
			registrar := m.Registrars[i]
			name := registrar.Name
			if i == row.Cheapest {
				name += " *"
			}
			doc.AddRow(7,
				text.NewCol(2, "."+row.TLD, cell),
				text.NewCol(4, name, cell),
				text.NewCol(2, money(c.Register, registrar.Currency), cellRight),
				text.NewCol(2, money(c.Renew, registrar.Currency), cellRight),
				text.NewCol(2, money(c.Transfer, registrar.Currency), cellRight),
			)
		}
	}

	doc.AddRow(10,
		text.NewCol(12, "* lowest register price for the TLD", props.Text{Size: 8, Top: 4}),
	)

	out, err := doc.Generate()
	if err != nil {
		return err
	}
	_, err = w.Write(out.GetBytes())
	return err
}

func money(v *float64, currency string) string {
	if v == nil {
		return "-"
	}
	return currency + " " + pricing.FormatDecimal(v)
}
