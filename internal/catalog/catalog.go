package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownDepartment is returned when a department name has no entry.
	ErrUnknownDepartment = errors.New("catalog: unknown department")
	// ErrBadWindow marks a malformed opening/closing window in configuration.
	ErrBadWindow = errors.New("catalog: malformed department window")
)

// Department describes one bookable department: its daily window and the
// hard per-slot capacity. Immutable after the catalog is built.
type Department struct {
	Name     string `json:"name"`
	Opens    string `json:"opens"`
	Closes   string `json:"closes"`
	Capacity int    `json:"capacity"`
}

// Catalog is the static department table, loaded once at process start
// and passed explicitly to components that need it.
type Catalog struct {
	order []string
	byKey map[string]Department
}

// Default returns the canonical NovaMed department table.
func Default() *Catalog {
	c, err := New([]Department{
		{Name: "Cardiology", Opens: "09:00", Closes: "12:00", Capacity: 10},
		{Name: "Neurology", Opens: "14:00", Closes: "17:00", Capacity: 8},
		{Name: "Orthopedics", Opens: "10:00", Closes: "13:00", Capacity: 6},
		{Name: "Pediatrics", Opens: "15:00", Closes: "18:00", Capacity: 12},
		{Name: "General Medicine", Opens: "09:00", Closes: "12:00", Capacity: 10},
		{Name: "Dermatology", Opens: "09:00", Closes: "18:00", Capacity: 15},
	})
	if err != nil {
		panic(fmt.Sprintf("catalog: default table invalid: %v", err))
	}
	return c
}

// New builds a catalog from the given departments, validating every entry.
func New(departments []Department) (*Catalog, error) {
	if len(departments) == 0 {
		return nil, errors.New("catalog: no departments configured")
	}
	c := &Catalog{byKey: make(map[string]Department, len(departments))}
	for _, d := range departments {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			return nil, errors.New("catalog: department with empty name")
		}
		if d.Capacity <= 0 {
			return nil, fmt.Errorf("catalog: department %s: capacity must be positive, got %d", name, d.Capacity)
		}
		open, err := parseClock(d.Opens)
		if err != nil {
			return nil, fmt.Errorf("%w: %s opens %q", ErrBadWindow, name, d.Opens)
		}
		close_, err := parseClock(d.Closes)
		if err != nil {
			return nil, fmt.Errorf("%w: %s closes %q", ErrBadWindow, name, d.Closes)
		}
		if open >= close_ {
			return nil, fmt.Errorf("%w: %s window %s-%s", ErrBadWindow, name, d.Opens, d.Closes)
		}
		key := strings.ToLower(name)
		if _, dup := c.byKey[key]; dup {
			return nil, fmt.Errorf("catalog: duplicate department %s", name)
		}
		d.Name = name
		c.byKey[key] = d
		c.order = append(c.order, name)
	}
	return c, nil
}

// FromJSON builds a catalog from a JSON array of departments, as supplied
// by the DEPARTMENTS_JSON override.
func FromJSON(raw string) (*Catalog, error) {
	var departments []Department
	if err := json.Unmarshal([]byte(raw), &departments); err != nil {
		return nil, fmt.Errorf("catalog: parse departments JSON: %w", err)
	}
	return New(departments)
}

// Names returns the department names in configuration order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Get looks a department up by name, case-insensitively.
func (c *Catalog) Get(name string) (Department, error) {
	d, ok := c.byKey[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Department{}, fmt.Errorf("%w: %q", ErrUnknownDepartment, name)
	}
	return d, nil
}

// Match scans free text for a department name, case-insensitive substring
// match. Longer names win so "general medicine" is not shadowed by a
// department that happens to be a prefix of it.
func (c *Catalog) Match(text string) (Department, bool) {
	lower := strings.ToLower(text)
	var best Department
	found := false
	for _, name := range c.order {
		if strings.Contains(lower, strings.ToLower(name)) {
			if !found || len(name) > len(best.Name) {
				best = c.byKey[strings.ToLower(name)]
				found = true
			}
		}
	}
	return best, found
}

func parseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d:%d", &h, &m); err != nil {
		return 0, err
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock out of range: %s", s)
	}
	return h*60 + m, nil
}
