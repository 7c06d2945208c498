package plant

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"strings"
)

// Catalog is the flat tabular source of machines, loaded once at startup.
// Machine keys are formatted "Tool_<ID>" to match the catalog file.
type Catalog struct {
	machines []Machine
	byID     map[string]Machine
}

// LoadCatalog reads a machine catalog from a CSV file with columns
// Tool_ID, fixed_cost, variable_cost and capacity (header order is free).
func LoadCatalog(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return ReadCatalog(f)
}

// ReadCatalog parses catalog CSV data from a reader.
func ReadCatalog(r io.Reader) (*Catalog, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read catalog header: %w", err)
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"tool_id", "fixed_cost", "variable_cost", "capacity"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("catalog missing column %q", required)
		}
	}

	cat := &Catalog{byID: map[string]Machine{}}
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read catalog line %d: %w", line, err)
		}
		id := strings.TrimSpace(record[cols["tool_id"]])
		capacity, err := strconv.Atoi(strings.TrimSpace(record[cols["capacity"]]))
		if err != nil {
			return nil, fmt.Errorf("catalog line %d: bad capacity: %w", line, err)
		}
		variable, err := strconv.ParseFloat(strings.TrimSpace(record[cols["variable_cost"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("catalog line %d: bad variable_cost: %w", line, err)
		}
		fixed, err := strconv.ParseFloat(strings.TrimSpace(record[cols["fixed_cost"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("catalog line %d: bad fixed_cost: %w", line, err)
		}
		m := Machine{
			Name:         "Tool_" + id,
			Capacity:     capacity,
			VariableCost: variable,
			FixedCost:    fixed,
		}
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("catalog line %d: %w", line, err)
		}
		if _, dup := cat.byID[id]; dup {
			return nil, fmt.Errorf("catalog line %d: duplicate tool id %s", line, id)
		}
		cat.byID[id] = m
		cat.machines = append(cat.machines, m)
	}
	if len(cat.machines) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}
	return cat, nil
}

// Len returns the number of machines in the catalog.
func (c *Catalog) Len() int { return len(c.machines) }

// SelectByID picks specific machines from the catalog by tool ID.
func (c *Catalog) SelectByID(ids ...string) (Set, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("no tool ids given")
	}
	machines := make([]Machine, 0, len(ids))
	for _, id := range ids {
		m, ok := c.byID[id]
		if !ok {
			return nil, fmt.Errorf("no tool with id %s in catalog", id)
		}
		machines = append(machines, m)
	}
	return NewSet(machines...)
}

// SelectRandom picks n machines at random. n must be greater than 2; with
// fewer machines the problem has no interesting structure.
func (c *Catalog) SelectRandom(n int, rng *rand.Rand) (Set, error) {
	if n <= 2 {
		return nil, fmt.Errorf("random selection needs more than 2 machines, got %d", n)
	}
	if n > len(c.machines) {
		return nil, fmt.Errorf("cannot select %d machines, catalog has %d", n, len(c.machines))
	}
	perm := rng.Perm(len(c.machines))
	machines := make([]Machine, 0, n)
	for _, idx := range perm[:n] {
		machines = append(machines, c.machines[idx])
	}
	return NewSet(machines...)
}
