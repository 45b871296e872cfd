package regions

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
)

// ErrInvalidRegion is returned when a region file entry cannot be used.
var ErrInvalidRegion = errors.New("invalid memory region")

// Region is a named address range of the system under test.
type Region struct {
	Start       uint16
	End         uint16 // inclusive
	Models      []int  // empty means every model
	Description string
}

// Contains reports whether address falls inside the region.
func (r Region) Contains(address uint16) bool {
	return address >= r.Start && address <= r.End
}

// AppliesTo reports whether the region exists on the given model.
func (r Region) AppliesTo(model int) bool {
	return len(r.Models) == 0 || slices.Contains(r.Models, model)
}

// Table is an ordered list of regions.
type Table struct {
	regions []Region
}

// NewTable builds a table sorted by start address.
func NewTable(regions []Region) *Table {
	sorted := slices.Clone(regions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})
	return &Table{regions: sorted}
}

// Default returns the built-in TRS-80 memory map.
func Default() *Table {
	return NewTable(defaultRegions)
}

// Regions returns a copy of every region in the table.
func (t *Table) Regions() []Region {
	return slices.Clone(t.regions)
}

// Len returns the number of regions.
func (t *Table) Len() int {
	return len(t.regions)
}

// Lookup returns the regions containing address on the given model. A model
// of 0 matches every region.
func (t *Table) Lookup(address uint16, model int) []Region {
	var found []Region
	for _, r := range t.regions {
		if r.Start > address {
			break
		}
		if r.Contains(address) && (model == 0 || r.AppliesTo(model)) {
			found = append(found, r)
		}
	}
	return found
}

// fileRegion is the on-disk format: a one or two element address list, the
// models the region applies to and a description.
type fileRegion struct {
	Address     []int  `json:"address"`
	ModelCode   []int  `json:"model_code"`
	Description string `json:"description"`
}

// Load reads a JSON array of regions.
func Load(r io.Reader) (*Table, error) {
	var entries []fileRegion
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode regions: %w", err)
	}

	regions := make([]Region, 0, len(entries))
	for i, e := range entries {
		region, err := e.region()
		if err != nil {
			return nil, fmt.Errorf("region %d (%q): %w", i, e.Description, err)
		}
		regions = append(regions, region)
	}
	return NewTable(regions), nil
}

// LoadFile reads a regions file from disk.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

func (e fileRegion) region() (Region, error) {
	if len(e.Address) == 0 || len(e.Address) > 2 {
		return Region{}, fmt.Errorf("%w: want 1 or 2 addresses, got %d", ErrInvalidRegion, len(e.Address))
	}
	for _, a := range e.Address {
		if a < 0 || a > 0xFFFF {
			return Region{}, fmt.Errorf("%w: address %d out of range", ErrInvalidRegion, a)
		}
	}

	start := uint16(e.Address[0])
	end := start
	if len(e.Address) == 2 {
		end = uint16(e.Address[1])
	}
	if end < start {
		return Region{}, fmt.Errorf("%w: end 0x%04X before start 0x%04X", ErrInvalidRegion, end, start)
	}

	return Region{
		Start:       start,
		End:         end,
		Models:      e.ModelCode,
		Description: e.Description,
	}, nil
}

// Reference: http://www.trs-80.com/
var defaultRegions = []Region{
	{0x37E1, 0x37E1, []int{1}, "Disk drive select"},
	{0x37E4, 0x37E4, []int{1}, "Cassette drive select (0 = #1, 1 = #2)"},
	{0x37E8, 0x37E8, []int{1, 3}, "Printer status (63 = on, 143 = off)"},
	{0x37E9, 0x37E9, []int{1, 3}, "Printer output"},
	{0x37EC, 0x37EC, []int{1}, "Disk command/status"},
	{0x37ED, 0x37ED, []int{1}, "Disk track select"},
	{0x37EE, 0x37EE, []int{1}, "Disk sector select"},
	{0x37EF, 0x37EF, []int{1}, "Disk data"},
	{0x3800, 0x3840, []int{1, 3}, "Keyboard matrix"},
	{0x3C00, 0x3FFF, []int{1, 3}, "Video RAM"},
	{0x3FCD, 0x3FCE, nil, "End of BASIC program pointer"},
	{0x4000, 0x4000, nil, "RST 08 vector (syntax check)"},
	{0x4003, 0x4005, []int{1, 3}, "RST 10 vector (next character)"},
	{0x4006, 0x4006, nil, "RST 18 vector (compare HL)"},
	{0x4009, 0x4009, nil, "RST 20 vector (current type)"},
	{0x400C, 0x400E, []int{1, 3}, "RST 28 vector (break key)"},
	{0x400F, 0x400F, []int{3}, "RST 30 vector"},
	{0x4012, 0x4015, []int{1, 3}, "RST 38 vector (interrupts)"},
	{0x4015, 0x401C, []int{1, 3}, "Keyboard device control block"},
	{0x4018, 0x4018, []int{1, 3}, "Right shift toggle"},
	{0x4019, 0x4019, []int{3}, "Caps lock toggle"},
	{0x401C, 0x401C, []int{1, 3}, "Cursor blink switch"},
	{0x401D, 0x4024, []int{1, 3}, "Video device control block"},
	{0x4020, 0x4021, []int{1, 3}, "Cursor position on screen"},
	{0x4022, 0x4022, nil, "Cursor on/off"},
	{0x4023, 0x4023, nil, "Cursor character"},
}
