package plan_test

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/katalvlaran/transitplan/core"
	"github.com/katalvlaran/transitplan/plan"
)

var nodes = []string{"A", "B", "C", "D", "E"}

type PlanSuite struct {
	suite.Suite
	p *plan.Plan
}

// SetupTest builds route "0" = A,B,C (15 min) and route "1" = B,C,D (5 min).
func (s *PlanSuite) SetupTest() {
	require := require.New(s.T())
	s.p = plan.New("test", nodes)
	for _, id := range []string{"A", "B", "C"} {
		require.NoError(s.p.AddStopToCurrentRoute(id))
	}
	require.Equal("1", s.p.EndCurrentRoute())
	for _, id := range []string{"B", "C", "D"} {
		require.NoError(s.p.AddStopToCurrentRoute(id))
	}
	require.NoError(s.p.ChangeFrequency("1", 5))
	require.Equal("2", s.p.EndCurrentRoute())
	require.NoError(s.p.Check())
}

func (s *PlanSuite) TestBuild() {
	require := require.New(s.T())
	require.Equal([]string{"0", "1"}, s.p.Routes())
	require.Equal([]string{"A", "B", "C"}, s.p.Stops("0"))
	require.Equal("2", s.p.CurrentRoute())

	h, ok := s.p.Headway("2")
	require.True(ok)
	require.Equal(plan.DefaultHeadway, h)

	require.Equal([]core.Arc{
		{From: "A", To: "B"},
		{From: "B", To: "C"},
		{From: "C", To: "D"},
	}, s.p.Edges())
	require.Equal([]string{"0", "1"}, s.p.RoutesOnEdge(core.Arc{From: "B", To: "C"}))
	require.Equal([]string{"0", "1"}, s.p.StopRoutes("C"))
	require.False(s.p.Served("E"))
	require.True(s.p.HasStop("E"))

	require.ErrorIs(s.p.AddStopToCurrentRoute("Z"), plan.ErrUnknownStop)
	require.NoError(s.p.AddStopToCurrentRoute("A"))
	require.ErrorIs(s.p.AddStopToCurrentRoute("A"), plan.ErrConsecutiveDuplicate)

	require.ErrorIs(s.p.ChangeFrequency("9", 10), plan.ErrRouteNotCreated)
	require.ErrorIs(s.p.ChangeFrequency("0", 0), plan.ErrBadHeadway)
	require.ErrorIs(s.p.ChangeFrequency("0", -3), plan.ErrBadHeadway)
}

func (s *PlanSuite) TestQueries() {
	require := require.New(s.T())
	ab := core.Arc{From: "A", To: "B"}
	bc := core.Arc{From: "B", To: "C"}
	cd := core.Arc{From: "C", To: "D"}

	require.Equal([]string{"0"}, s.p.RoutesInCommon(&ab, bc))
	require.Equal([]string{"1"}, s.p.RoutesInCommon(&bc, cd))
	require.Empty(s.p.RoutesInCommon(&ab, cd))
	require.Nil(s.p.RoutesInCommon(nil, bc))

	require.False(s.p.RequiresTransfer(&ab, bc))
	require.True(s.p.RequiresTransfer(&ab, cd))
	require.True(s.p.RequiresTransfer(nil, ab))

	require.Equal(5.0, s.p.MinWaitAtStop("B"))
	require.Equal(15.0, s.p.MinWaitAtStop("A"))
	require.Zero(s.p.MinWaitAtStop("E"))

	require.Equal(5.0, s.p.ShortestInterval([]string{"0", "1"}))
	require.Equal(15.0, s.p.ShortestInterval([]string{"0", "missing"}))
	require.Zero(s.p.ShortestInterval(nil))

	// 2 hops every 15 min + 2 hops every 5 min.
	require.InDelta(2.0/15+2.0/5, s.p.TotalScheduledMinutes(), 1e-9)
}

func (s *PlanSuite) TestTravelTimeOption() {
	require := require.New(s.T())
	p := plan.New("tt", nodes, plan.WithTravelTime(func(from, to string) float64 { return 3 }))
	for _, id := range []string{"A", "B", "C"} {
		require.NoError(p.AddStopToCurrentRoute(id))
	}
	require.InDelta(6.0/15, p.TotalScheduledMinutes(), 1e-9)
}

func (s *PlanSuite) TestInsertStop() {
	require := require.New(s.T())
	require.NoError(s.p.InsertStop(1, "0", "E"))
	require.Equal([]string{"A", "E", "B", "C"}, s.p.Stops("0"))
	require.False(s.p.HasEdge("A", "B"))
	require.True(s.p.HasEdge("A", "E"))
	require.True(s.p.HasEdge("E", "B"))
	require.NoError(s.p.Check())

	require.NoError(s.p.InsertStop(4, "0", "D"), "insert at len appends")
	require.Equal([]string{"A", "E", "B", "C", "D"}, s.p.Stops("0"))
	require.Equal([]string{"0", "1"}, s.p.RoutesOnEdge(core.Arc{From: "C", To: "D"}))

	require.ErrorIs(s.p.InsertStop(6, "0", "A"), plan.ErrIndexOutOfRange)
	require.ErrorIs(s.p.InsertStop(-1, "0", "A"), plan.ErrIndexOutOfRange)
	require.ErrorIs(s.p.InsertStop(1, "0", "A"), plan.ErrConsecutiveDuplicate)
	require.ErrorIs(s.p.InsertStop(1, "0", "E"), plan.ErrConsecutiveDuplicate)
	require.ErrorIs(s.p.InsertStop(0, "9", "A"), plan.ErrRouteNotFound)
	require.ErrorIs(s.p.InsertStop(0, "0", "Z"), plan.ErrUnknownStop)
	require.NoError(s.p.Check())
}

func (s *PlanSuite) TestRemoveStop() {
	require := require.New(s.T())
	got, err := s.p.RemoveStop(1, "0")
	require.NoError(err)
	require.Equal("B", got)
	require.Equal([]string{"A", "C"}, s.p.Stops("0"))
	require.True(s.p.HasEdge("A", "C"))
	require.False(s.p.HasEdge("A", "B"))
	require.Equal([]string{"1"}, s.p.RoutesOnEdge(core.Arc{From: "B", To: "C"}))
	require.Equal([]string{"1"}, s.p.StopRoutes("B"))
	require.NoError(s.p.Check())

	_, err = s.p.RemoveStop(2, "0")
	require.ErrorIs(err, plan.ErrIndexOutOfRange)

	// A,B,A: removing B would join A to itself.
	require.NoError(s.p.AddStopToCurrentRoute("A"))
	require.NoError(s.p.AddStopToCurrentRoute("B"))
	require.NoError(s.p.AddStopToCurrentRoute("A"))
	_, err = s.p.RemoveStop(1, "2")
	require.ErrorIs(err, plan.ErrConsecutiveDuplicate)
	require.NoError(s.p.Check())
}

func (s *PlanSuite) TestReplaceStop() {
	require := require.New(s.T())
	old, err := s.p.ReplaceStop(0, "0", "D")
	require.NoError(err)
	require.Equal("A", old)
	require.Equal([]string{"D", "B", "C"}, s.p.Stops("0"))
	require.False(s.p.Served("A"))
	require.True(s.p.HasEdge("D", "B"))
	require.NoError(s.p.Check())

	same, err := s.p.ReplaceStop(1, "0", "B")
	require.NoError(err)
	require.Equal("B", same)

	_, err = s.p.ReplaceStop(1, "0", "C")
	require.ErrorIs(err, plan.ErrConsecutiveDuplicate)
	_, err = s.p.ReplaceStop(3, "0", "E")
	require.ErrorIs(err, plan.ErrIndexOutOfRange)
	_, err = s.p.ReplaceStop(0, "0", "Z")
	require.ErrorIs(err, plan.ErrUnknownStop)
}

func (s *PlanSuite) TestCloneAndEqual() {
	require := require.New(s.T())
	c := s.p.Clone()
	require.True(c.Equal(s.p))

	require.NoError(c.InsertStop(0, "1", "E"))
	require.False(c.Equal(s.p))
	require.Equal([]string{"B", "C", "D"}, s.p.Stops("1"))
	require.NoError(s.p.Check())
	require.NoError(c.Check())

	h := s.p.Clone()
	require.NoError(h.ChangeFrequency("0", 30))
	require.False(h.Equal(s.p))
}

func (s *PlanSuite) TestDocument() {
	require := require.New(s.T())
	var buf bytes.Buffer
	require.NoError(s.p.WriteJSON(&buf))

	doc, err := plan.ReadDocument(&buf)
	require.NoError(err)
	require.True(doc.Graph.Directed)
	require.Len(doc.Graph.Nodes, len(nodes))
	require.Len(doc.Graph.Links, 3)
	require.Equal([]string{"0", "1"}, doc.StopsToRoutes["B"])

	back, err := plan.FromDocument("test", nil, doc)
	require.NoError(err)
	require.True(back.Equal(s.p))
	require.Equal("2", back.CurrentRoute())
	require.NoError(back.Check())

	bad := s.p.Document()
	bad.Graph.Links = append(bad.Graph.Links, plan.Link{Source: "A", Target: "D"})
	_, err = plan.FromDocument("bad", nil, bad)
	require.ErrorIs(err, plan.ErrInconsistentDocument)

	bad = s.p.Document()
	bad.StopsToRoutes["A"] = []string{"1"}
	_, err = plan.FromDocument("bad", nil, bad)
	require.ErrorIs(err, plan.ErrInconsistentDocument)

	bad = s.p.Document()
	bad.RoutesToStops["0"] = []string{"A", "A"}
	bad.StopsToRoutes = nil
	bad.Graph.Links = nil
	_, err = plan.FromDocument("bad", nil, bad)
	require.ErrorIs(err, plan.ErrInconsistentDocument)
	require.ErrorIs(err, plan.ErrConsecutiveDuplicate)
}

// TestRandomEditsKeepIndices applies random edits, checking the materialized
// views after each and that every edit is undone by its inverse.
func (s *PlanSuite) TestRandomEditsKeepIndices() {
	require := require.New(s.T())
	rng := rand.New(rand.NewSource(7))
	routes := []string{"0", "1"}

	tolerated := func(err error) bool {
		return errors.Is(err, plan.ErrConsecutiveDuplicate) || errors.Is(err, plan.ErrIndexOutOfRange)
	}

	for step := 0; step < 500; step++ {
		before := s.p.Clone()
		route := routes[rng.Intn(len(routes))]
		n := s.p.RouteLen(route)
		stop := nodes[rng.Intn(len(nodes))]

		switch rng.Intn(3) {
		case 0:
			i := rng.Intn(n + 1)
			err := s.p.InsertStop(i, route, stop)
			if err != nil {
				require.True(tolerated(err), err)
				continue
			}
			require.NoError(s.p.Check())
			undo := s.p.Clone()
			_, err = undo.RemoveStop(i, route)
			require.NoError(err)
			require.True(undo.Equal(before), "remove undoes insert at step %d", step)
		case 1:
			if n == 0 {
				continue
			}
			i := rng.Intn(n)
			old, err := s.p.RemoveStop(i, route)
			if err != nil {
				require.True(tolerated(err), err)
				continue
			}
			require.NoError(s.p.Check())
			undo := s.p.Clone()
			require.NoError(undo.InsertStop(i, route, old))
			require.True(undo.Equal(before), "insert undoes remove at step %d", step)
		default:
			if n == 0 {
				continue
			}
			i := rng.Intn(n)
			old, err := s.p.ReplaceStop(i, route, stop)
			if err != nil {
				require.True(tolerated(err), err)
				continue
			}
			require.NoError(s.p.Check())
			undo := s.p.Clone()
			_, err = undo.ReplaceStop(i, route, old)
			require.NoError(err)
			require.True(undo.Equal(before), "replace undoes replace at step %d", step)
		}
	}
}

func TestPlanSuite(t *testing.T) {
	suite.Run(t, new(PlanSuite))
}

func TestFromSchedule(t *testing.T) {
	at := func(h, m int) time.Duration { return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute }
	abc := func(trip string, start time.Duration) plan.ScheduledTrip {
		return plan.ScheduledTrip{RouteID: "R1", TripID: trip, StopTimes: []plan.StopTime{
			{StopID: "A", Sequence: 1, Departure: start},
			{StopID: "B", Sequence: 2, Departure: start + 4*time.Minute},
			{StopID: "C", Sequence: 3, Departure: start + 9*time.Minute},
		}}
	}
	trips := []plan.ScheduledTrip{
		abc("t1", at(6, 0)),
		abc("t2", at(6, 10)),
		abc("t3", at(6, 30)),
		{RouteID: "R1", TripID: "t4", StopTimes: []plan.StopTime{
			{StopID: "C", Sequence: 1, Departure: at(7, 0)},
			{StopID: "A", Sequence: 2, Departure: at(7, 9)},
		}},
		{RouteID: "R2", TripID: "u1", StopTimes: []plan.StopTime{
			{StopID: "D", Sequence: 4, Departure: at(8, 20)},
			{StopID: "B", Sequence: 1, Departure: at(8, 0)},
			{StopID: "B", Sequence: 3, Departure: at(8, 15)},
			{StopID: "C", Sequence: 2, Departure: at(8, 5)},
		}},
	}

	p, err := plan.FromSchedule("sched", nodes, trips, plan.WithDefaultHeadway(20))
	require.NoError(t, err)
	require.NoError(t, p.Check())
	require.Equal(t, []string{"R1", "R2"}, p.Routes())

	// Gaps of 10 and 20 minutes at A.
	h, _ := p.Headway("R1")
	require.Equal(t, 15.0, h)
	require.Equal(t, []string{"A", "B", "C"}, p.Stops("R1"))
	info, ok := p.Info("R1")
	require.True(t, ok)
	require.Equal(t, plan.RouteInfo{FirstTripMinute: 660, LastTripMinute: 690}, info)

	// A single departure falls back to the default; the repeated B is dropped.
	h, _ = p.Headway("R2")
	require.Equal(t, 20.0, h)
	require.Equal(t, []string{"B", "C", "D"}, p.Stops("R2"))
	require.Equal(t, "2", p.CurrentRoute())

	_, err = plan.FromSchedule("bad", nodes, []plan.ScheduledTrip{
		{RouteID: "R", TripID: "x", StopTimes: []plan.StopTime{{StopID: "Z", Sequence: 1}}},
	})
	require.ErrorIs(t, err, plan.ErrUnknownStop)
}

func TestFromSchedule_MeasuredPatternBeatsOneOff(t *testing.T) {
	var trips []plan.ScheduledTrip
	for i := 0; i < 20; i++ {
		start := 6*time.Hour + time.Duration(i)*30*time.Minute
		trips = append(trips, plan.ScheduledTrip{RouteID: "R", TripID: fmt.Sprintf("day%02d", i), StopTimes: []plan.StopTime{
			{StopID: "A", Sequence: 1, Departure: start},
			{StopID: "B", Sequence: 2, Departure: start + 5*time.Minute},
			{StopID: "C", Sequence: 3, Departure: start + 10*time.Minute},
			{StopID: "D", Sequence: 4, Departure: start + 15*time.Minute},
		}})
	}
	// A late short-turn with a single departure; its headway is only the fallback.
	trips = append(trips, plan.ScheduledTrip{RouteID: "R", TripID: "late", StopTimes: []plan.StopTime{
		{StopID: "C", Sequence: 1, Departure: 23 * time.Hour},
		{StopID: "D", Sequence: 2, Departure: 23*time.Hour + 5*time.Minute},
	}})

	p, err := plan.FromSchedule("sched", nodes, trips)
	require.NoError(t, err)
	require.NoError(t, p.Check())

	h, ok := p.Headway("R")
	require.True(t, ok)
	require.Equal(t, 30.0, h)
	require.Equal(t, []string{"A", "B", "C", "D"}, p.Stops("R"))
}

func TestString(t *testing.T) {
	p := plan.New("demo", nodes)
	require.NoError(t, p.AddStopToCurrentRoute("A"))
	require.NoError(t, p.AddStopToCurrentRoute("B"))
	require.Equal(t, "plan \"demo\": 1 routes, 1 edges\n  0 (every 15 min): A -> B\n", p.String())
}
