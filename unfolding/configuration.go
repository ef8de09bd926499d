package unfolding

// Configuration is a causally closed, conflict-free set of events together
// with its frontier, the events no other member depends on.
//
// Configurations are values: Plus returns a new configuration and leaves the
// receiver untouched.
type Configuration struct {
	events   EventSet
	frontier EventSet
}

// NewConfiguration returns the configuration holding only the root.
func NewConfiguration() Configuration {
	root := NewEventSet(Root)
	return Configuration{events: root, frontier: root}
}

// Events returns the members of c.
func (c Configuration) Events() EventSet { return c.events }

// Frontier returns the maximal events of c.
func (c Configuration) Frontier() EventSet { return c.frontier }

// Contains reports whether id is in c.
func (c Configuration) Contains(id EventID) bool { return c.events.Contains(id) }

// Len returns the number of events in c, root included.
func (c Configuration) Len() int { return c.events.Len() }

// Key identifies the set of events in c.
func (c Configuration) Key() string { return c.events.Key() }

// Plus returns c ∪ {e}. The caller guarantees that the result is a
// configuration.
func (c Configuration) Plus(e *Event) Configuration {
	next := Configuration{events: c.events.With(e.ID()), frontier: c.frontier}
	next.UpdateFrontier(e)
	return next
}

// UpdateFrontier makes e maximal: its causes leave the frontier and e joins it.
func (c *Configuration) UpdateFrontier(e *Event) {
	c.frontier = c.frontier.Minus(e.Causes()).With(e.ID())
}

// Configuration builds the configuration of a causally closed set.
func (s *Store) Configuration(events EventSet) Configuration {
	return Configuration{events: events, frontier: s.Maximal(events)}
}
