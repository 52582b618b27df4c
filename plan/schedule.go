package plan

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// serviceDayStart is the offset, in minutes, added to RouteInfo departures.
const serviceDayStart = 5 * 60

// StopTime is one scheduled call of a trip, with StopID already collapsed to
// a plan node.
type StopTime struct {
	StopID    string
	Sequence  int
	Departure time.Duration
}

// ScheduledTrip is one trip of a route in a static schedule.
type ScheduledTrip struct {
	RouteID   string
	TripID    string
	StopTimes []StopTime
}

// FromSchedule derives a plan from scheduled trips.
//
// For every route, trips are grouped by their first stop. Each group's
// headway is the median gap between its distinct departures; a group with a
// single departure falls back to the default headway. Groups with a measured
// headway always win over fallback groups. Among the rest the route takes the
// group with the smallest (headway, first trip id, first stop) and its
// earliest trip as the representative stop sequence. Repeated stops after the
// first visit are dropped.
//
// Errors:
//   - ErrUnknownStop: a representative trip calls at a stop outside nodes.
func FromSchedule(name string, nodes []string, trips []ScheduledTrip, opts ...Option) (*Plan, error) {
	p := newPlan(name, nodes, opts...)

	byRoute := make(map[string][]ScheduledTrip)
	for _, t := range trips {
		if len(t.StopTimes) == 0 {
			continue
		}
		byRoute[t.RouteID] = append(byRoute[t.RouteID], t)
	}

	for _, route := range sortedKeys(byRoute) {
		rep, ok := representative(byRoute[route], p.defaultHeadway)
		if !ok {
			continue
		}
		p.headways[route] = rep.headway
		p.info[route] = RouteInfo{
			FirstTripMinute: serviceMinute(rep.first),
			LastTripMinute:  serviceMinute(rep.last),
		}
		p.routes[route] = nil
		seen := make(map[string]struct{}, len(rep.trip.StopTimes))
		for _, st := range rep.trip.StopTimes {
			if _, dup := seen[st.StopID]; dup {
				continue
			}
			seen[st.StopID] = struct{}{}
			if err := p.appendStop(route, st.StopID); err != nil {
				return nil, fmt.Errorf("plan: route %q trip %q: %w", route, rep.trip.TripID, err)
			}
		}
	}

	p.seq = len(p.headways)
	p.advanceCursor()

	return p, nil
}

type departure struct {
	trip ScheduledTrip
	at   time.Duration
}

type candidate struct {
	headway     float64
	measured    bool
	trip        ScheduledTrip
	stop        string
	first, last time.Duration
}

func (c candidate) less(o candidate) bool {
	if c.measured != o.measured {
		return c.measured
	}
	if c.headway != o.headway {
		return c.headway < o.headway
	}
	if c.trip.TripID != o.trip.TripID {
		return c.trip.TripID < o.trip.TripID
	}

	return c.stop < o.stop
}

// representative picks the trip whose stop sequence stands for the route.
func representative(trips []ScheduledTrip, fallback float64) (candidate, bool) {
	groups := make(map[string][]departure)
	for _, t := range trips {
		sts := append([]StopTime(nil), t.StopTimes...)
		sort.SliceStable(sts, func(i, j int) bool { return sts[i].Sequence < sts[j].Sequence })
		t.StopTimes = sts
		groups[sts[0].StopID] = append(groups[sts[0].StopID], departure{trip: t, at: sts[0].Departure})
	}

	var (
		best  candidate
		found bool
	)
	for stop, deps := range groups {
		sort.Slice(deps, func(i, j int) bool {
			if deps[i].at != deps[j].at {
				return deps[i].at < deps[j].at
			}
			return deps[i].trip.TripID < deps[j].trip.TripID
		})
		headway, measured := medianGap(deps)
		if !measured {
			headway = fallback
		}
		c := candidate{
			headway:  headway,
			measured: measured,
			trip:     deps[0].trip,
			stop:     stop,
			first:    deps[0].at,
			last:     deps[len(deps)-1].at,
		}
		if !found || c.less(best) {
			best, found = c, true
		}
	}

	return best, found
}

// medianGap is the median difference, in minutes, between consecutive
// distinct departures in deps (sorted by time). ok is false when deps holds
// fewer than two distinct departures.
func medianGap(deps []departure) (gap float64, ok bool) {
	var gaps []float64
	for i := 1; i < len(deps); i++ {
		if d := deps[i].at - deps[i-1].at; d > 0 {
			gaps = append(gaps, d.Minutes())
		}
	}
	if len(gaps) == 0 {
		return 0, false
	}
	sort.Float64s(gaps)
	mid := len(gaps) / 2
	if len(gaps)%2 == 1 {
		return gaps[mid], true
	}

	return (gaps[mid-1] + gaps[mid]) / 2, true
}

func serviceMinute(d time.Duration) int {
	m := int(math.Round(d.Minutes())) + serviceDayStart

	return ((m % 1440) + 1440) % 1440
}
