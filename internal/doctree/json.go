package doctree

import (
	"encoding/json"
	"fmt"
)

// sectionJSON is the persisted form of a section. Children are not stored;
// they are rebuilt from parent IDs in document order.
type sectionJSON struct {
	ID       string `json:"id"`
	Level    int    `json:"level"`
	Heading  string `json:"heading"`
	Text     string `json:"text"`
	ParentID string `json:"parent_id,omitempty"`
}

type documentJSON struct {
	Sections []sectionJSON `json:"sections"`
}

// MarshalJSON writes the flat section list with parent IDs.
func (d *Document) MarshalJSON() ([]byte, error) {
	out := documentJSON{Sections: make([]sectionJSON, len(d.Sections))}
	for i := range d.Sections {
		s := &d.Sections[i]
		out.Sections[i] = sectionJSON{
			ID:      s.ID,
			Level:   s.Level,
			Heading: s.Heading,
			Text:    s.Text,
		}
		if s.Parent != NoParent {
			out.Sections[i].ParentID = d.Sections[s.Parent].ID
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON rebuilds the arena, the parent indices and the child lists.
// Parents must precede their children and levels must nest strictly.
func (d *Document) UnmarshalJSON(data []byte) error {
	var in documentJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	byID := make(map[string]int, len(in.Sections))
	sections := make([]Section, 0, len(in.Sections))
	for i, sj := range in.Sections {
		parent := NoParent
		if sj.ParentID != "" {
			p, ok := byID[sj.ParentID]
			if !ok {
				return fmt.Errorf("section %d (%q): unknown or later parent %q", i, sj.Heading, sj.ParentID)
			}
			if sj.Level != sections[p].Level+1 {
				return fmt.Errorf("section %d (%q): level %d under level %d parent", i, sj.Heading, sj.Level, sections[p].Level)
			}
			parent = p
		} else if sj.Level != 1 {
			return fmt.Errorf("section %d (%q): top-level section has level %d", i, sj.Heading, sj.Level)
		}
		if _, dup := byID[sj.ID]; dup {
			return fmt.Errorf("section %d (%q): duplicate id %q", i, sj.Heading, sj.ID)
		}
		byID[sj.ID] = i
		sections = append(sections, Section{
			ID:      sj.ID,
			Level:   sj.Level,
			Heading: sj.Heading,
			Text:    sj.Text,
			Parent:  parent,
		})
		if parent != NoParent {
			sections[parent].Children = append(sections[parent].Children, i)
		}
	}
	d.Sections = sections
	return nil
}
