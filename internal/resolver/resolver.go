// Package resolver turns incident events into the set of destinations that
// must be notified.
package resolver

import (
	"context"
	"sort"
	"time"

	"github.com/pratik-mahalle/alertroute/internal/domain/incident"
	"github.com/pratik-mahalle/alertroute/internal/domain/notification"
	"github.com/pratik-mahalle/alertroute/internal/pkg/logger"
	"github.com/pratik-mahalle/alertroute/internal/pkg/metrics"
)

// ProfileLister returns every active profile hydrated with its timeslot,
// filters and destinations
type ProfileLister interface {
	ListActive(ctx context.Context) ([]*notification.Profile, error)
}

// MediaMarker records that a medium has no sender
type MediaMarker interface {
	MarkNotInstalled(ctx context.Context, slug string) (bool, error)
}

// Registry reports which media can currently be delivered
type Registry interface {
	Supports(m notification.Medium) bool
}

// Resolver implements notification.Resolver. It holds no mutable state and
// is safe for concurrent use.
type Resolver struct {
	profiles ProfileLister
	media    MediaMarker
	registry Registry
	matcher  *Matcher
	logger   *logger.Logger
}

// New creates a resolver. A nil registry treats every known medium as installed.
func New(profiles ProfileLister, media MediaMarker, registry Registry, matcher *Matcher, log *logger.Logger) *Resolver {
	return &Resolver{
		profiles: profiles,
		media:    media,
		registry: registry,
		matcher:  matcher,
		logger:   log,
	}
}

// Resolve returns the destinations of every active profile matching the
// event, deduplicated and ordered by ID. No match yields an empty slice.
func (r *Resolver) Resolve(ctx context.Context, e *incident.Event) ([]*notification.Destination, error) {
	start := time.Now()

	profiles, err := r.profiles.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	acc := newAccumulator()
	for _, p := range profiles {
		if r.matcher.Matches(p, e) {
			acc.add(p.Destinations)
		}
	}

	result := acc.sorted()
	r.flagUninstalled(ctx, result)
	r.record([]*incident.Event{e}, [][]*notification.Destination{result}, start)
	return result, nil
}

// ResolveMany resolves a batch with a single scan of the profile collection.
// Entry i of the result, possibly empty, belongs to events[i], so events
// need not carry distinct IDs.
func (r *Resolver) ResolveMany(ctx context.Context, events []*incident.Event) ([][]*notification.Destination, error) {
	start := time.Now()
	out := make([][]*notification.Destination, len(events))
	if len(events) == 0 {
		return out, nil
	}

	profiles, err := r.profiles.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	snaps := make([]snapshot, len(events))
	accs := make([]*accumulator, len(events))
	for i, e := range events {
		snaps[i] = snapshotOf(&e.Incident)
		accs[i] = newAccumulator()
	}

	cache := newMemo(r.matcher.eval)
	for _, p := range profiles {
		for i, e := range events {
			if cache.matches(r.matcher, p, e, snaps[i]) {
				accs[i].add(p.Destinations)
			}
		}
	}

	var all []*notification.Destination
	for i, acc := range accs {
		out[i] = acc.sorted()
		all = append(all, out[i]...)
	}
	r.flagUninstalled(ctx, all)
	r.record(events, out, start)
	return out, nil
}

// flagUninstalled clears the installed flag of every medium among dests that
// cannot be delivered. The destinations stay in the result; the dispatcher
// skips them.
func (r *Resolver) flagUninstalled(ctx context.Context, dests []*notification.Destination) {
	seen := make(map[notification.Medium]bool)
	for _, d := range dests {
		if seen[d.Medium] || r.installed(d.Medium) {
			continue
		}
		seen[d.Medium] = true

		changed, err := r.media.MarkNotInstalled(ctx, string(d.Medium))
		if err != nil {
			r.logger.WithFields(map[string]interface{}{
				"medium": d.Medium,
			}).WarnWithErr(err, "Failed to flag medium as not installed")
			continue
		}
		if changed {
			metrics.RecordMediumNotInstalled(string(d.Medium))
			r.logger.WithFields(map[string]interface{}{
				"medium":         d.Medium,
				"destination_id": d.ID,
			}).Warn("Medium has no registered sender, flagged as not installed")
		}
	}
}

func (r *Resolver) installed(m notification.Medium) bool {
	if !m.IsValid() {
		return false
	}
	return r.registry == nil || r.registry.Supports(m)
}

func (r *Resolver) record(events []*incident.Event, out [][]*notification.Destination, start time.Time) {
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = string(e.Type)
	}
	metrics.RecordResolution(types, time.Since(start))

	for i, e := range events {
		dests := out[i]
		for _, d := range dests {
			metrics.RecordDestinationResolved(string(d.Medium))
		}
		r.logger.WithFields(map[string]interface{}{
			"event_id":     e.ID,
			"incident_id":  e.Incident.ID,
			"event_type":   e.Type,
			"destinations": len(dests),
		}).Debug("Event resolved")
	}
}

// accumulator collects destinations deduplicated by ID
type accumulator struct {
	byID map[int64]*notification.Destination
}

func newAccumulator() *accumulator {
	return &accumulator{byID: make(map[int64]*notification.Destination)}
}

func (a *accumulator) add(dests []*notification.Destination) {
	for _, d := range dests {
		a.byID[d.ID] = d
	}
}

func (a *accumulator) sorted() []*notification.Destination {
	out := make([]*notification.Destination, 0, len(a.byID))
	for _, d := range a.byID {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
