package allocation

import (
	"fmt"
	"sort"

	appErrors "github.com/noah-isme/resource-allocator/pkg/errors"
)

// SlotKey identifies one teaching period in the weekly grid.
type SlotKey struct {
	Day   string `json:"day"`
	Start string `json:"startTime"`
	End   string `json:"endTime"`
}

// String renders the key as "Monday 09:00-10:00".
func (k SlotKey) String() string {
	return fmt.Sprintf("%s %s-%s", k.Day, k.Start, k.End)
}

// Period is one start/end pair inside a day.
type Period struct {
	Start string `json:"startTime" mapstructure:"startTime"`
	End   string `json:"endTime" mapstructure:"endTime"`
}

// Catalog is the fixed, ordered day × period grid shared by every generator.
type Catalog struct {
	Days    []string `json:"days" mapstructure:"days"`
	Periods []Period `json:"periods" mapstructure:"periods"`
}

// DefaultCatalog returns the institutional week: Monday to Saturday, six periods a day
// with the short and lunch breaks left out of the grid.
func DefaultCatalog() Catalog {
	return Catalog{
		Days: []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
		Periods: []Period{
			{Start: "09:00", End: "10:00"},
			{Start: "10:00", End: "11:00"},
			{Start: "11:15", End: "12:15"},
			{Start: "12:15", End: "13:15"},
			{Start: "14:00", End: "15:00"},
			{Start: "15:00", End: "16:00"},
		},
	}
}

func (c Catalog) empty() bool {
	return len(c.Days) == 0 && len(c.Periods) == 0
}

// orDefault lets callers leave the catalog unset.
func (c Catalog) orDefault() Catalog {
	if c.empty() {
		return DefaultCatalog()
	}
	return c
}

// Validate rejects grids that cannot host a single slot or contain malformed periods.
func (c Catalog) Validate() error {
	if len(c.Days) == 0 || len(c.Periods) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "slot catalog requires at least one day and one period")
	}
	for _, p := range c.Periods {
		start, err := parseClock(p.Start)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid period start")
		}
		end, err := parseClock(p.End)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid period end")
		}
		if end <= start {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("period %s-%s ends before it starts", p.Start, p.End))
		}
	}
	return nil
}

// Size is the number of distinct slot keys in the grid.
func (c Catalog) Size() int {
	return len(c.Days) * len(c.Periods)
}

// At maps an attempt counter onto the grid. The period index advances every attempt and
// the day index every len(Periods) attempts, both wrapping, so any counter is valid.
func (c Catalog) At(attempt int) SlotKey {
	periods := len(c.Periods)
	day := c.Days[(attempt/periods)%len(c.Days)]
	p := c.Periods[attempt%periods]
	return SlotKey{Day: day, Start: p.Start, End: p.End}
}

// Keys lists every slot key day-major, the order used for first-wins tie-breaks.
func (c Catalog) Keys() []SlotKey {
	keys := make([]SlotKey, 0, c.Size())
	for _, day := range c.Days {
		for _, p := range c.Periods {
			keys = append(keys, SlotKey{Day: day, Start: p.Start, End: p.End})
		}
	}
	return keys
}

// Calendar tracks which slot keys each owner (a faculty id, a room id, a class) has reserved.
// It is built fresh for every allocation call and is not safe for concurrent use.
type Calendar struct {
	busy map[string]map[SlotKey]struct{}
}

// NewCalendar returns an empty calendar.
func NewCalendar() *Calendar {
	return &Calendar{busy: make(map[string]map[SlotKey]struct{})}
}

// IsFree reports whether owner has nothing reserved at key. Unknown owners are free.
func (c *Calendar) IsFree(owner string, key SlotKey) bool {
	slots, ok := c.busy[owner]
	if !ok {
		return true
	}
	_, taken := slots[key]
	return !taken
}

// Reserve marks key as taken for owner. Callers check IsFree first; reserving twice is a no-op
// and hides the double booking.
func (c *Calendar) Reserve(owner string, key SlotKey) {
	slots, ok := c.busy[owner]
	if !ok {
		slots = make(map[SlotKey]struct{})
		c.busy[owner] = slots
	}
	slots[key] = struct{}{}
}

// Load is the number of slots reserved by owner across the week.
func (c *Calendar) Load(owner string) int {
	return len(c.busy[owner])
}

// LoadOn is the number of slots reserved by owner on one day.
func (c *Calendar) LoadOn(owner, day string) int {
	count := 0
	for key := range c.busy[owner] {
		if key.Day == day {
			count++
		}
	}
	return count
}

// BusyAt counts owners holding key, optionally skipping some owners.
func (c *Calendar) BusyAt(key SlotKey, skip ...string) int {
	skipped := make(map[string]struct{}, len(skip))
	for _, s := range skip {
		skipped[s] = struct{}{}
	}
	count := 0
	for owner, slots := range c.busy {
		if _, ok := skipped[owner]; ok {
			continue
		}
		if _, ok := slots[key]; ok {
			count++
		}
	}
	return count
}

// Owners returns the owners with at least one reservation, sorted.
func (c *Calendar) Owners() []string {
	owners := make([]string, 0, len(c.busy))
	for owner, slots := range c.busy {
		if len(slots) > 0 {
			owners = append(owners, owner)
		}
	}
	sort.Strings(owners)
	return owners
}
