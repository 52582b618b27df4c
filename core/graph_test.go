package core_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/katalvlaran/transitplan/core"
)

// Common vertex and route IDs used across core tests.
const (
	StopA = "A"
	StopB = "B"
	StopC = "C"
	StopD = "D"

	Route1 = "r1"
	Route2 = "r2"
)

type GraphSuite struct {
	suite.Suite
	g *core.Graph
}

func (s *GraphSuite) SetupTest() {
	s.g = core.NewGraph(core.WithVertices(StopA, StopB, StopC, StopD))
}

func (s *GraphSuite) TestVertices() {
	require := require.New(s.T())
	require.Equal([]string{StopA, StopB, StopC, StopD}, s.g.Vertices())
	require.True(s.g.HasVertex(StopA))
	require.False(s.g.HasVertex("Z"))
	require.False(s.g.HasVertex(""))

	g := core.NewGraph(core.WithVertices("Z", "", "Z"))
	require.Equal([]string{"Z"}, g.Vertices(), "empty and repeated IDs are ignored")
}

func (s *GraphSuite) TestSupportCreatesAndRemovesEdge() {
	require := require.New(s.T())

	require.NoError(s.g.AddSupport(StopA, StopB, Route1))
	require.True(s.g.HasEdge(StopA, StopB))
	require.False(s.g.HasEdge(StopB, StopA), "edges are directed")
	require.Equal(1, s.g.EdgeCount())

	require.NoError(s.g.AddSupport(StopA, StopB, Route2))
	require.Equal([]string{Route1, Route2}, s.g.Routes(StopA, StopB))
	require.Equal(1, s.g.EdgeCount())

	require.NoError(s.g.RemoveSupport(StopA, StopB, Route1))
	require.True(s.g.HasEdge(StopA, StopB), "r2 still supports the edge")
	require.NoError(s.g.RemoveSupport(StopA, StopB, Route2))
	require.False(s.g.HasEdge(StopA, StopB))
	require.Zero(s.g.EdgeCount())
	require.Nil(s.g.Routes(StopA, StopB))
}

func (s *GraphSuite) TestSupportMultiplicity() {
	require := require.New(s.T())
	require.NoError(s.g.AddSupport(StopA, StopB, Route1))
	require.NoError(s.g.AddSupport(StopA, StopB, Route1))
	require.Equal([]string{Route1}, s.g.Routes(StopA, StopB))

	require.NoError(s.g.RemoveSupport(StopA, StopB, Route1))
	require.True(s.g.HasEdge(StopA, StopB), "second traversal keeps the edge")
	require.NoError(s.g.RemoveSupport(StopA, StopB, Route1))
	require.False(s.g.HasEdge(StopA, StopB))
}

func (s *GraphSuite) TestSupportErrors() {
	require := require.New(s.T())
	require.ErrorIs(s.g.AddSupport(StopA, "Z", Route1), core.ErrVertexNotFound)
	require.ErrorIs(s.g.AddSupport(StopA, StopA, Route1), core.ErrLoopNotAllowed)
	require.ErrorIs(s.g.AddSupport(StopA, StopB, ""), core.ErrEmptyRouteID)
	require.ErrorIs(s.g.AddSupport("", StopB, Route1), core.ErrEmptyVertexID)
	require.ErrorIs(s.g.RemoveSupport(StopA, StopB, Route1), core.ErrEdgeNotFound)

	require.NoError(s.g.AddSupport(StopA, StopB, Route1))
	require.ErrorIs(s.g.RemoveSupport(StopA, StopB, Route2), core.ErrRouteNotOnEdge)
}

func (s *GraphSuite) TestNeighborhood() {
	require := require.New(s.T())
	require.NoError(s.g.AddSupport(StopA, StopC, Route1))
	require.NoError(s.g.AddSupport(StopA, StopB, Route1))
	require.NoError(s.g.AddSupport(StopD, StopB, Route2))

	var visited []string
	require.NoError(s.g.VisitOut(StopA, func(e *core.Edge) bool {
		visited = append(visited, e.To)
		return true
	}))
	require.Equal([]string{StopB, StopC}, visited)

	visited = nil
	require.NoError(s.g.VisitOut(StopA, func(e *core.Edge) bool {
		visited = append(visited, e.To)
		return false
	}))
	require.Equal([]string{StopB}, visited, "returning false stops the walk")

	require.NoError(s.g.VisitOut(StopB, func(*core.Edge) bool {
		s.Fail("B has no outgoing edges")
		return true
	}))
	require.ErrorIs(s.g.VisitOut("Z", func(*core.Edge) bool { return true }), core.ErrVertexNotFound)
	require.ErrorIs(s.g.VisitOut("", func(*core.Edge) bool { return true }), core.ErrEmptyVertexID)

	require.Equal([]core.Arc{{StopA, StopB}, {StopA, StopC}, {StopD, StopB}}, s.g.Edges())
}

func (s *GraphSuite) TestCloneIsIndependent() {
	require := require.New(s.T())
	require.NoError(s.g.AddSupport(StopA, StopB, Route1))

	c := s.g.Clone()
	require.True(c.SameEdges(s.g))
	require.NoError(c.AddSupport(StopB, StopC, Route1))
	require.NoError(c.AddSupport(StopA, StopB, Route2))
	require.False(c.SameEdges(s.g))
	require.Equal([]string{Route1}, s.g.Routes(StopA, StopB))

	empty := s.g.CloneEmpty()
	require.Zero(empty.EdgeCount())
	require.Equal(s.g.Vertices(), empty.Vertices())
	require.False(s.g.SameEdges(empty))
	require.NoError(s.g.RemoveSupport(StopA, StopB, Route1))
	require.True(s.g.SameEdges(empty))
}

func (s *GraphSuite) TestSameSupport() {
	require := require.New(s.T())
	require.NoError(s.g.AddSupport(StopA, StopB, Route1))
	require.NoError(s.g.AddSupport(StopA, StopB, Route1))

	c := s.g.Clone()
	require.True(c.SameSupport(s.g))

	require.NoError(c.RemoveSupport(StopA, StopB, Route1))
	require.True(c.SameEdges(s.g), "edge survives while Route1 still supports it")
	require.False(c.SameSupport(s.g), "multiplicity differs")

	require.NoError(c.AddSupport(StopA, StopB, Route1))
	require.NoError(c.AddSupport(StopA, StopB, Route2))
	require.False(c.SameSupport(s.g), "extra route")
	require.False(c.SameSupport(nil))
}

func TestGraphSuite(t *testing.T) {
	suite.Run(t, new(GraphSuite))
}

func TestArc(t *testing.T) {
	a := core.Arc{From: StopA, To: StopB}
	require.Equal(t, "A->B", a.String())
}
