package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dgallion1/docsplit/internal/doctree"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

func rows(set *doctree.ChunkSet) [][]string {
	out := make([][]string, 0, len(set.Chunks)+1)
	out = append(out, columns)
	for _, c := range set.Chunks {
		out = append(out, []string{string(set.Method), c.ID, c.SectionID, c.Text})
	}
	return out
}

// fromRows rebuilds a chunk set from a header row and data rows. An empty
// set keeps its method in a data row with empty chunk fields.
func fromRows(records [][]string) (*doctree.ChunkSet, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("missing header row")
	}
	if len(records[0]) < len(columns) || records[0][1] != "id" {
		return nil, fmt.Errorf("unexpected header %v", records[0])
	}
	set := &doctree.ChunkSet{}
	for i, rec := range records[1:] {
		for len(rec) < len(columns) {
			rec = append(rec, "")
		}
		set.Method = doctree.ChunkingMethod(rec[0])
		if rec[1] == "" && rec[2] == "" && rec[3] == "" {
			continue
		}
		if rec[1] == "" {
			return nil, fmt.Errorf("row %d: missing id", i+2)
		}
		set.Chunks = append(set.Chunks, doctree.Chunk{ID: rec[1], SectionID: rec[2], Text: rec[3]})
	}
	return set, nil
}

func tableRows(set *doctree.ChunkSet) [][]string {
	r := rows(set)
	if len(set.Chunks) == 0 {
		r = append(r, []string{string(set.Method), "", "", ""})
	}
	return r
}

func writeCSV(w io.Writer, set *doctree.ChunkSet) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(tableRows(set)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func readCSV(r io.Reader) (*doctree.ChunkSet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	return fromRows(records)
}

func writeYAML(w io.Writer, set *doctree.ChunkSet) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(set); err != nil {
		return fmt.Errorf("write yaml: %w", err)
	}
	return enc.Close()
}

func readYAML(r io.Reader) (*doctree.ChunkSet, error) {
	var set doctree.ChunkSet
	if err := yaml.NewDecoder(r).Decode(&set); err != nil {
		return nil, err
	}
	return &set, nil
}

const sheetName = "Chunks"

func writeXLSX(w io.Writer, set *doctree.ChunkSet) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("could not rename sheet: %w", err)
	}
	for rowIdx, row := range tableRows(set) {
		for colIdx, cell := range row {
			cellName, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
			if err != nil {
				return fmt.Errorf("invalid cell coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cellName, cell); err != nil {
				return fmt.Errorf("could not set cell %s: %w", cellName, err)
			}
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func readXLSX(r io.Reader) (*doctree.ChunkSet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := f.GetRows(sheetName)
	if err != nil {
		return nil, err
	}
	return fromRows(records)
}
