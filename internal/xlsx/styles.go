package xlsx

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"chxlsx/pkg/contracts/domain"
)

// firstCustomNumFmtID is the lowest number format id that is not reserved for
// built-in formats.
const firstCustomNumFmtID = 164

// StyleCatalog is the minimal style table of one workbook: the implicit
// default style and one style carrying the custom date-time number format.
type StyleCatalog struct {
	DefaultStyleID int
	DateStyleID    int
	DateFormat     string
}

// NewStyleCatalog registers the date style in f. It must be the first style
// created in the workbook so that its id is domain.DateStyleID.
func NewStyleCatalog(f *excelize.File, dateFormat string) (*StyleCatalog, error) {
	if dateFormat == "" {
		return nil, fmt.Errorf("date-time format must not be empty")
	}

	format := dateFormat
	id, err := f.NewStyle(&excelize.Style{CustomNumFmt: &format})
	if err != nil {
		return nil, fmt.Errorf("failed to create date style: %w", err)
	}
	if id != domain.DateStyleID {
		return nil, fmt.Errorf("date style registered as %d, expected %d", id, domain.DateStyleID)
	}

	return &StyleCatalog{
		DefaultStyleID: domain.DefaultStyleID,
		DateStyleID:    id,
		DateFormat:     dateFormat,
	}, nil
}

// StyleFor returns the style id a cell should be written with
func (c *StyleCatalog) StyleFor(cell domain.Cell) int {
	if cell.Type == domain.CellTypeDate {
		return c.DateStyleID
	}
	return c.DefaultStyleID
}
