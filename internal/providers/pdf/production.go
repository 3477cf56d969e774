package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	deliverydomain "github.com/smallbiznis/recurra/internal/delivery/domain"
)

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

var (
	headerText = props.Text{Style: fontstyle.Bold, Size: 9}
	cellText   = props.Text{Size: 9}
	qtyHeader  = props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}
	qtyCell    = props.Text{Size: 9, Align: align.Right}
)

// GenerateProductionSheet lays out one section per day followed by the range totals.
func (p *PDFProvider) GenerateProductionSheet(ctx context.Context, sheet deliverydomain.ProductionResponse) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, "Production sheet", props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)
	m.AddRow(8,
		text.NewCol(12, fmt.Sprintf("%s to %s", sheet.Range.Start, sheet.Range.End), props.Text{Size: 10}),
	)
	m.AddRow(4, col.New(12))

	for _, day := range sheet.Days {
		if len(day.Products) == 0 {
			continue
		}
		m.AddRow(9,
			text.NewCol(8, day.Date.String(), props.Text{Size: 11, Style: fontstyle.Bold}),
			text.NewCol(4, fmt.Sprintf("%d units, %d deliveries", day.TotalQuantity, day.Deliveries), props.Text{Size: 9, Align: align.Right}),
		)
		addProductTable(m, day.Products)
		m.AddRow(4, col.New(12))
	}

	m.AddRow(10,
		text.NewCol(12, "Totals", props.Text{Size: 12, Style: fontstyle.Bold, Top: 2}),
	)
	addProductTable(m, sheet.Totals.Products)
	m.AddRow(4, col.New(12))

	m.AddRow(7,
		text.NewCol(8, "Category", headerText),
		text.NewCol(2, "Qty", qtyHeader),
		text.NewCol(2, "Share", qtyHeader),
	)
	for _, category := range sheet.Totals.Categories {
		m.AddRow(6,
			text.NewCol(8, category.Category, cellText),
			text.NewCol(2, strconv.Itoa(category.Quantity), qtyCell),
			text.NewCol(2, strconv.FormatFloat(category.Percent, 'f', 1, 64)+"%", qtyCell),
		)
	}

	if skipped := len(sheet.DataQuality.SkippedItems); skipped > 0 {
		m.AddRow(10,
			text.NewCol(12, fmt.Sprintf("%d subscription items were left out because their schedule could not be read.", skipped), props.Text{
				Size:  8,
				Style: fontstyle.Italic,
				Top:   4,
			}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}

func addProductTable(m core.Maroto, products []deliverydomain.ProductTotal) {
	m.AddRow(7,
		text.NewCol(6, "Product", headerText),
		text.NewCol(4, "Category", headerText),
		text.NewCol(2, "Qty", qtyHeader),
	)
	for _, product := range products {
		m.AddRow(6,
			text.NewCol(6, product.ProductName, cellText),
			text.NewCol(4, product.Category, cellText),
			text.NewCol(2, strconv.Itoa(product.Quantity), qtyCell),
		)
	}
}
