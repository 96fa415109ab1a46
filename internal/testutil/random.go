package testutil

import (
	"math/rand"
	"time"

	"github.com/pratik-mahalle/alertroute/internal/domain/filter"
	"github.com/pratik-mahalle/alertroute/internal/domain/incident"
)

var tagPool = []string{"env=prod", "env=staging", "region=eu", "region=us", "team=db"}

// RandomIncident builds an incident drawn from a small attribute space so
// random criteria select non-trivial subsets
func RandomIncident(rng *rand.Rand, id int64) *incident.Incident {
	var tags []string
	for _, tag := range tagPool {
		if rng.Intn(3) == 0 {
			tags = append(tags, tag)
		}
	}
	stateful := rng.Intn(2) == 0
	return &incident.Incident{
		ID:        id,
		Level:     rng.Intn(incident.MaxLevel) + 1,
		Stateful:  stateful,
		Open:      stateful && rng.Intn(2) == 0,
		Acked:     rng.Intn(2) == 0,
		SourceID:  int64(rng.Intn(4) + 1),
		StartTime: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC).Add(time.Duration(rng.Intn(7*24)) * time.Hour),
		Tags:      tags,
	}
}

// RandomCriteria builds criteria where each criterion is independently
// unset, set to an empty value or set to a concrete value
func RandomCriteria(rng *rand.Rand) filter.Criteria {
	var c filter.Criteria

	switch rng.Intn(3) {
	case 1:
		c.SourceSystemIDs = []int64{}
	case 2:
		for id := int64(1); id <= 4; id++ {
			if rng.Intn(2) == 0 {
				c.SourceSystemIDs = append(c.SourceSystemIDs, id)
			}
		}
	}

	switch rng.Intn(3) {
	case 1:
		c.Tags = []string{}
	case 2:
		c.Tags = []string{tagPool[rng.Intn(len(tagPool))]}
		if rng.Intn(3) == 0 {
			c.Tags = append(c.Tags, tagPool[rng.Intn(len(tagPool))])
		}
	}

	c.Open = randomTriState(rng)
	c.Acked = randomTriState(rng)
	c.Stateful = randomTriState(rng)

	if rng.Intn(2) == 0 {
		c.MaxLevel = filter.Int(rng.Intn(incident.MaxLevel) + 1)
	}

	if rng.Intn(4) == 0 {
		c.EventTypes = []incident.EventType{incident.AllEventTypes[rng.Intn(len(incident.AllEventTypes))]}
	}

	return c
}

func randomTriState(rng *rand.Rand) *bool {
	switch rng.Intn(3) {
	case 0:
		return nil
	case 1:
		return filter.Bool(false)
	default:
		return filter.Bool(true)
	}
}
