package incident

// Predicate is a composable condition over incidents. The storage layer
// renders it into its own query language; Matches is the in-memory form.
type Predicate interface {
	Matches(i *Incident) bool
	predicate()
}

// Flag names one of the boolean incident attributes
type Flag string

const (
	FlagOpen     Flag = "open"
	FlagAcked    Flag = "acked"
	FlagStateful Flag = "stateful"
)

// Value returns the flag's value on the incident
func (f Flag) Value(i *Incident) bool {
	switch f {
	case FlagOpen:
		return i.Open
	case FlagAcked:
		return i.Acked
	case FlagStateful:
		return i.Stateful
	}
	return false
}

// AllOf is a conjunction. With no terms it matches every incident.
type AllOf struct {
	Terms []Predicate
}

// AnyOf is a disjunction. With no terms it matches no incident.
type AnyOf struct {
	Terms []Predicate
}

// SourceIn requires the incident's source system to be one of IDs
type SourceIn struct {
	IDs []int64
}

// TagsAll requires every tag to be present on the incident
type TagsAll struct {
	Tags []string
}

// FlagEquals requires an exact value for one boolean attribute
type FlagEquals struct {
	Flag  Flag
	Value bool
}

// LevelAtMost requires level <= Max
type LevelAtMost struct {
	Max int
}

// All builds a conjunction
func All(terms ...Predicate) Predicate { return AllOf{Terms: terms} }

// Any builds a disjunction
func Any(terms ...Predicate) Predicate { return AnyOf{Terms: terms} }

// Nothing matches no incident
func Nothing() Predicate { return AnyOf{} }

// Everything matches all incidents
func Everything() Predicate { return AllOf{} }

func (p AllOf) Matches(i *Incident) bool {
	for _, t := range p.Terms {
		if !t.Matches(i) {
			return false
		}
	}
	return true
}

func (p AnyOf) Matches(i *Incident) bool {
	for _, t := range p.Terms {
		if t.Matches(i) {
			return true
		}
	}
	return false
}

func (p SourceIn) Matches(i *Incident) bool {
	for _, id := range p.IDs {
		if i.SourceID == id {
			return true
		}
	}
	return false
}

func (p TagsAll) Matches(i *Incident) bool {
	for _, tag := range p.Tags {
		if !i.HasTag(tag) {
			return false
		}
	}
	return true
}

func (p FlagEquals) Matches(i *Incident) bool {
	return p.Flag.Value(i) == p.Value
}

func (p LevelAtMost) Matches(i *Incident) bool {
	return i.Level <= p.Max
}

func (AllOf) predicate()       {}
func (AnyOf) predicate()       {}
func (SourceIn) predicate()    {}
func (TagsAll) predicate()     {}
func (FlagEquals) predicate()  {}
func (LevelAtMost) predicate() {}
