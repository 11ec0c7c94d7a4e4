package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docsplit/internal/doctree"
)

// csvBatchSize is the number of data rows per section.
const csvBatchSize = 20

// CSVParser handles CSV files. Rows are grouped into level-2 sections of
// csvBatchSize rows under a level-1 heading named after the file; each row is
// rendered as one "header: value" line.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return &doctree.Document{}, nil
	}

	o := newOutline(titleFromFilename(filename))
	headers := records[0]
	dataRows := records[1:]

	o.heading(1, o.title)
	o.para("Columns: " + strings.Join(headers, ", "))

	for i := 0; i < len(dataRows); i += csvBatchSize {
		end := min(i+csvBatchSize, len(dataRows))

		var text strings.Builder
		for _, row := range dataRows[i:end] {
			for j, cell := range row {
				if j > 0 {
					text.WriteString(", ")
				}
				if j < len(headers) {
					text.WriteString(headers[j] + ": " + cell)
				} else {
					text.WriteString(cell)
				}
			}
			text.WriteString("\n")
		}

		// 1-indexed, counting the header row.
		o.heading(2, fmt.Sprintf("Rows %d-%d", i+2, end+1))
		o.para(text.String())
	}

	return o.document()
}
