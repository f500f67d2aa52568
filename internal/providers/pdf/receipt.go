package pdf

import (
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	billingdomain "github.com/smallgrid/aquabill/internal/billing/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.pdf",
	fx.Provide(NewReceiptRenderer),
)

// ReceiptRenderer renders payment receipts with maroto.
type ReceiptRenderer struct{}

func NewReceiptRenderer() billingdomain.ReceiptRenderer {
	return &ReceiptRenderer{}
}

func (r *ReceiptRenderer) Render(receipt billingdomain.Receipt) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(25,
		text.NewCol(12, "Payment Receipt", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("Reference: "+receipt.Reference, props.Text{Top: 0}),
			text.New("Date paid: "+receipt.PaymentDate.Format("2006-01-02"), props.Text{Top: 4}),
			text.New("Method: "+receipt.Method, props.Text{Top: 8}),
		),
		col.New(6).Add(
			text.New(receipt.CustomerName, props.Text{Style: fontstyle.Bold}),
			text.New("Site: "+receipt.SiteName, props.Text{Top: 5}),
			text.New("Meter: "+receipt.MeterNumber, props.Text{Top: 9}),
		),
	)

	m.AddRow(15,
		text.NewCol(12, receipt.Amount.StringFixed(2)+" paid on "+receipt.PaymentDate.Format("2006-01-02"), props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   5,
		}),
	)

	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Amount", props.Text{Size: 9}),
		text.NewCol(2, receipt.Amount.StringFixed(2), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Balance", props.Text{Size: 9}),
		text.NewCol(2, receipt.RecordBalance.StringFixed(2), props.Text{Size: 9, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}
