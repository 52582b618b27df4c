package optimize

import (
	"fmt"

	"github.com/katalvlaran/transitplan/plan"
)

// Command is one reversible plan mutation.
//
// Apply mutates the plan and records what Inverse needs. Inverse is only
// meaningful after a successful Apply; applying it restores the plan exactly.
type Command interface {
	Kind() Kind
	Apply(p *plan.Plan) error
	Inverse() Command
	String() string
}

// IncreaseFrequency shortens the headway of Route by By minutes. A headway
// not longer than By is left untouched.
type IncreaseFrequency struct {
	Route string
	By    float64

	prev    float64
	changed bool
}

func (c *IncreaseFrequency) Kind() Kind { return KindIncreaseFrequency }

func (c *IncreaseFrequency) Apply(p *plan.Plan) error {
	h, ok := p.Headway(c.Route)
	if !ok {
		return fmt.Errorf("%w: %q", plan.ErrRouteNotCreated, c.Route)
	}
	c.prev, c.changed = h, false
	if h <= c.By {
		return nil
	}
	if err := p.ChangeFrequency(c.Route, h-c.By); err != nil {
		return err
	}
	c.changed = true

	return nil
}

// Changed reports whether the last Apply modified the headway.
func (c *IncreaseFrequency) Changed() bool { return c.changed }

func (c *IncreaseFrequency) Inverse() Command {
	return &SetFrequency{Route: c.Route, Headway: c.prev, kind: KindDecreaseFrequency}
}

func (c *IncreaseFrequency) String() string {
	return fmt.Sprintf("on route %s increased frequency by %g min", c.Route, c.By)
}

// DecreaseFrequency lengthens the headway of Route by By minutes.
type DecreaseFrequency struct {
	Route string
	By    float64

	prev float64
}

func (c *DecreaseFrequency) Kind() Kind { return KindDecreaseFrequency }

func (c *DecreaseFrequency) Apply(p *plan.Plan) error {
	h, ok := p.Headway(c.Route)
	if !ok {
		return fmt.Errorf("%w: %q", plan.ErrRouteNotCreated, c.Route)
	}
	if err := p.ChangeFrequency(c.Route, h+c.By); err != nil {
		return err
	}
	c.prev = h

	return nil
}

func (c *DecreaseFrequency) Inverse() Command {
	return &SetFrequency{Route: c.Route, Headway: c.prev, kind: KindIncreaseFrequency}
}

func (c *DecreaseFrequency) String() string {
	return fmt.Sprintf("on route %s decreased frequency by %g min", c.Route, c.By)
}

// SetFrequency sets the headway of Route to an exact value. It undoes the
// frequency commands without floating-point drift.
type SetFrequency struct {
	Route   string
	Headway float64

	kind Kind
	prev float64
}

func (c *SetFrequency) Kind() Kind { return c.kind }

func (c *SetFrequency) Apply(p *plan.Plan) error {
	h, ok := p.Headway(c.Route)
	if !ok {
		return fmt.Errorf("%w: %q", plan.ErrRouteNotCreated, c.Route)
	}
	if err := p.ChangeFrequency(c.Route, c.Headway); err != nil {
		return err
	}
	c.prev = h

	return nil
}

func (c *SetFrequency) Inverse() Command {
	kind := KindDecreaseFrequency
	if c.kind == KindDecreaseFrequency {
		kind = KindIncreaseFrequency
	}

	return &SetFrequency{Route: c.Route, Headway: c.prev, kind: kind}
}

func (c *SetFrequency) String() string {
	return fmt.Sprintf("on route %s set headway to %g min", c.Route, c.Headway)
}

// AddStop inserts Stop at Index of Route.
type AddStop struct {
	Route  string
	Index  int
	Stop   string
	Radius float64 // search radius the stop was drawn from, for the description
}

func (c *AddStop) Kind() Kind { return KindAddStop }

func (c *AddStop) Apply(p *plan.Plan) error { return p.InsertStop(c.Index, c.Route, c.Stop) }

func (c *AddStop) Inverse() Command { return &RemoveStop{Route: c.Route, Index: c.Index} }

func (c *AddStop) String() string {
	if c.Radius > 0 {
		return fmt.Sprintf("on route %s added stop %s at %d in radius %g", c.Route, c.Stop, c.Index, c.Radius)
	}

	return fmt.Sprintf("on route %s added stop %s at %d", c.Route, c.Stop, c.Index)
}

// RemoveStop removes the stop at Index of Route.
type RemoveStop struct {
	Route string
	Index int

	removed string
}

func (c *RemoveStop) Kind() Kind { return KindRemoveStop }

func (c *RemoveStop) Apply(p *plan.Plan) error {
	s, err := p.RemoveStop(c.Index, c.Route)
	if err != nil {
		return err
	}
	c.removed = s

	return nil
}

// Removed returns the stop taken out by the last Apply.
func (c *RemoveStop) Removed() string { return c.removed }

func (c *RemoveStop) Inverse() Command {
	return &AddStop{Route: c.Route, Index: c.Index, Stop: c.removed}
}

func (c *RemoveStop) String() string {
	if c.removed != "" {
		return fmt.Sprintf("on route %s removed stop %s at %d", c.Route, c.removed, c.Index)
	}

	return fmt.Sprintf("on route %s removed stop at %d", c.Route, c.Index)
}

// ReplaceStop puts Stop at Index of Route in place of the current stop.
type ReplaceStop struct {
	Route  string
	Index  int
	Stop   string
	Radius float64

	old string
}

func (c *ReplaceStop) Kind() Kind { return KindReplaceStop }

func (c *ReplaceStop) Apply(p *plan.Plan) error {
	old, err := p.ReplaceStop(c.Index, c.Route, c.Stop)
	if err != nil {
		return err
	}
	c.old = old

	return nil
}

func (c *ReplaceStop) Inverse() Command {
	return &ReplaceStop{Route: c.Route, Index: c.Index, Stop: c.old}
}

func (c *ReplaceStop) String() string {
	s := fmt.Sprintf("on route %s replaced stop %s with %s at %d", c.Route, c.old, c.Stop, c.Index)
	if c.Radius > 0 {
		s += fmt.Sprintf(" in radius %g", c.Radius)
	}

	return s
}
