package optimize

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/katalvlaran/transitplan/geo"
	"github.com/katalvlaran/transitplan/plan"
)

// ErrNoProposal indicates that no valid command of the requested kind exists
// for the drawn route and position.
var ErrNoProposal = errors.New("optimize: no valid proposal")

// proposeAttempts bounds how many random routes Propose tries.
const proposeAttempts = 8

// Proposer draws concrete commands for a kind and parameter.
type Proposer struct {
	idx *geo.Index
	rng *rand.Rand
}

// NewProposer returns a Proposer drawing candidate stops from idx.
func NewProposer(idx *geo.Index, rng *rand.Rand) *Proposer {
	return &Proposer{idx: idx, rng: rng}
}

// Propose builds a command of kind with param on a random route of p. The
// command is not applied. Stop candidates that would put the same stop twice
// in a row are never proposed.
//
// Errors:
//   - ErrNoProposal: every attempt drew a route or position without a valid command.
func (pr *Proposer) Propose(p *plan.Plan, kind Kind, param float64) (Command, error) {
	routes := servedRoutes(p)
	if len(routes) == 0 {
		return nil, fmt.Errorf("%w: plan has no routes", ErrNoProposal)
	}

	for attempt := 0; attempt < proposeAttempts; attempt++ {
		route := routes[pr.rng.Intn(len(routes))]
		seq := p.Stops(route)

		switch kind {
		case KindIncreaseFrequency:
			return &IncreaseFrequency{Route: route, By: param}, nil
		case KindDecreaseFrequency:
			return &DecreaseFrequency{Route: route, By: param}, nil
		case KindRemoveStop:
			if cmd, ok := pr.remove(route, seq); ok {
				return cmd, nil
			}
		case KindAddStop:
			if cmd, ok := pr.add(p, route, seq, param); ok {
				return cmd, nil
			}
		case KindReplaceStop:
			if cmd, ok := pr.replace(p, route, seq, param); ok {
				return cmd, nil
			}
		default:
			return nil, fmt.Errorf("optimize: unsupported kind %v", kind)
		}
	}

	return nil, fmt.Errorf("%w: %v(%g)", ErrNoProposal, kind, param)
}

// remove picks a position whose neighbours differ. Routes are kept at two
// stops or more.
func (pr *Proposer) remove(route string, seq []string) (Command, bool) {
	if len(seq) < 3 {
		return nil, false
	}
	var valid []int
	for i := range seq {
		if i > 0 && i < len(seq)-1 && seq[i-1] == seq[i+1] {
			continue
		}
		valid = append(valid, i)
	}
	if len(valid) == 0 {
		return nil, false
	}

	return &RemoveStop{Route: route, Index: valid[pr.rng.Intn(len(valid))]}, true
}

// add inserts a stop near the stop currently at a random position.
func (pr *Proposer) add(p *plan.Plan, route string, seq []string, radius float64) (Command, bool) {
	if len(seq) == 0 {
		return nil, false
	}
	i := pr.rng.Intn(len(seq) + 1)
	anchor := seq[min(i, len(seq)-1)]
	exclude := neighbours(seq, i-1, i)
	stop, ok := pr.nearby(p, anchor, radius, exclude)
	if !ok {
		return nil, false
	}

	return &AddStop{Route: route, Index: i, Stop: stop, Radius: radius}, true
}

// replace swaps a random stop for another one near it.
func (pr *Proposer) replace(p *plan.Plan, route string, seq []string, radius float64) (Command, bool) {
	if len(seq) == 0 {
		return nil, false
	}
	i := pr.rng.Intn(len(seq))
	exclude := neighbours(seq, i-1, i, i+1)
	stop, ok := pr.nearby(p, seq[i], radius, exclude)
	if !ok {
		return nil, false
	}

	return &ReplaceStop{Route: route, Index: i, Stop: stop, Radius: radius}, true
}

// nearby draws a plan stop within radius of anchor that is not excluded.
func (pr *Proposer) nearby(p *plan.Plan, anchor string, radius float64, exclude map[string]struct{}) (string, bool) {
	center, ok := pr.idx.Point(anchor)
	if !ok {
		return "", false
	}
	var cands []string
	for _, id := range pr.idx.Within(center, radius) {
		if _, skip := exclude[id]; skip || !p.HasStop(id) {
			continue
		}
		cands = append(cands, id)
	}
	if len(cands) == 0 {
		return "", false
	}

	return cands[pr.rng.Intn(len(cands))], true
}

// neighbours collects the stops of seq at the in-range positions.
func neighbours(seq []string, positions ...int) map[string]struct{} {
	out := make(map[string]struct{}, len(positions))
	for _, i := range positions {
		if i >= 0 && i < len(seq) {
			out[seq[i]] = struct{}{}
		}
	}

	return out
}

// servedRoutes lists the routes that have at least one stop.
func servedRoutes(p *plan.Plan) []string {
	var out []string
	for _, r := range p.Routes() {
		if p.RouteLen(r) > 0 {
			out = append(out, r)
		}
	}

	return out
}
