package plan

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Document is the JSON persistence form of a plan. The graph is written as a
// node-link structure so other graph tooling can read it directly.
type Document struct {
	Headways      map[string]float64   `json:"headways"`
	RoutesToStops map[string][]string  `json:"routes_to_stops"`
	StopsToRoutes map[string][]string  `json:"stops_to_routes"`
	Graph         NodeLink             `json:"graph"`
	CurrentRoute  string               `json:"current_route,omitempty"`
	RouteInfo     map[string]RouteInfo `json:"route_info,omitempty"`
}

// NodeLink is a directed node-link graph.
type NodeLink struct {
	Directed   bool           `json:"directed"`
	Multigraph bool           `json:"multigraph"`
	Graph      map[string]any `json:"graph"`
	Nodes      []Node         `json:"nodes"`
	Links      []Link         `json:"links"`
}

// Node is one node-link vertex.
type Node struct {
	ID string `json:"id"`
}

// Link is one node-link edge.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Document captures the plan in its persistence form.
func (p *Plan) Document() Document {
	p.mu.RLock()
	defer p.mu.RUnlock()

	doc := Document{
		Headways:      make(map[string]float64, len(p.headways)),
		RoutesToStops: make(map[string][]string, len(p.routes)),
		StopsToRoutes: make(map[string][]string, len(p.stopRoutes)),
		CurrentRoute:  p.current,
		Graph: NodeLink{
			Directed: true,
			Graph:    map[string]any{"name": p.name},
		},
	}
	for r, h := range p.headways {
		doc.Headways[r] = h
	}
	for r, seq := range p.routes {
		doc.RoutesToStops[r] = append([]string{}, seq...)
	}
	for s, routes := range p.stopRoutes {
		doc.StopsToRoutes[s] = sortedKeys(routes)
	}
	if len(p.info) > 0 {
		doc.RouteInfo = make(map[string]RouteInfo, len(p.info))
		for r, ri := range p.info {
			doc.RouteInfo[r] = ri
		}
	}
	for _, id := range p.graph.Vertices() {
		doc.Graph.Nodes = append(doc.Graph.Nodes, Node{ID: id})
	}
	for _, a := range p.graph.Edges() {
		doc.Graph.Links = append(doc.Graph.Links, Link{Source: a.From, Target: a.To})
	}

	return doc
}

// WriteJSON encodes the plan's Document to w.
func (p *Plan) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(p.Document())
}

// ReadDocument decodes a Document from r.
func ReadDocument(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("plan: decode document: %w", err)
	}

	return doc, nil
}

// FromDocument rebuilds a plan from its persistence form.
//
// Routes are replayed stop by stop, so the stop index and the edge set are
// derived rather than trusted. When the document carries them, they must agree
// with the derived ones or ErrInconsistentDocument is returned. nodes fixes the
// stop universe; when nil, the document's node list is used.
func FromDocument(name string, nodes []string, doc Document, opts ...Option) (*Plan, error) {
	if nodes == nil {
		for _, n := range doc.Graph.Nodes {
			nodes = append(nodes, n.ID)
		}
	}
	p := newPlan(name, nodes, opts...)

	for r, h := range doc.Headways {
		if !(h > 0) {
			return nil, fmt.Errorf("%w: route %q: %w", ErrInconsistentDocument, r, ErrBadHeadway)
		}
		p.headways[r] = h
	}
	for _, r := range sortedKeys(doc.RoutesToStops) {
		if _, ok := p.headways[r]; !ok {
			return nil, fmt.Errorf("%w: route %q has stops but no headway", ErrInconsistentDocument, r)
		}
		p.routes[r] = nil
		for _, s := range doc.RoutesToStops[r] {
			if err := p.appendStop(r, s); err != nil {
				return nil, fmt.Errorf("%w: route %q: %w", ErrInconsistentDocument, r, err)
			}
		}
	}
	for r, ri := range doc.RouteInfo {
		p.info[r] = ri
	}

	if doc.StopsToRoutes != nil {
		if err := p.matchStopIndex(doc.StopsToRoutes); err != nil {
			return nil, err
		}
	}
	if doc.Graph.Links != nil {
		if err := p.matchLinks(doc.Graph.Links); err != nil {
			return nil, err
		}
	}

	p.seq = len(p.headways)
	if doc.CurrentRoute != "" {
		p.current = doc.CurrentRoute
		if _, ok := p.headways[p.current]; !ok {
			p.headways[p.current] = p.defaultHeadway
		}
	} else {
		p.advanceCursor()
	}

	return p, nil
}

func (p *Plan) matchStopIndex(want map[string][]string) error {
	served := 0
	for s, routes := range want {
		if len(routes) == 0 {
			continue
		}
		served++
		got := p.stopRoutes[s]
		if len(got) != len(dedupe(routes)) {
			return fmt.Errorf("%w: stop %q lists %d routes, routes visit it with %d", ErrInconsistentDocument, s, len(routes), len(got))
		}
		for _, r := range routes {
			if got[r] == 0 {
				return fmt.Errorf("%w: stop %q lists route %q which does not visit it", ErrInconsistentDocument, s, r)
			}
		}
	}
	if served != len(p.stopRoutes) {
		return fmt.Errorf("%w: %d stops listed, %d served", ErrInconsistentDocument, served, len(p.stopRoutes))
	}

	return nil
}

func (p *Plan) matchLinks(links []Link) error {
	seen := make(map[Link]struct{}, len(links))
	for _, l := range links {
		if !p.graph.HasEdge(l.Source, l.Target) {
			return fmt.Errorf("%w: link %s->%s has no supporting route", ErrInconsistentDocument, l.Source, l.Target)
		}
		seen[l] = struct{}{}
	}
	if len(seen) != p.graph.EdgeCount() {
		return fmt.Errorf("%w: %d links listed, routes traverse %d", ErrInconsistentDocument, len(seen), p.graph.EdgeCount())
	}

	return nil
}

func dedupe(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	n := 0
	for i, id := range out {
		if i == 0 || id != out[n-1] {
			out[n] = id
			n++
		}
	}

	return out[:n]
}
