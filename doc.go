// Package transitplan redesigns bus networks for riders who depend on
// transit.
//
// A plan is a set of routes (ordered stop sequences with a headway each)
// over a stop graph whose edges remember which routes traverse them. Trips
// between demographic and point-of-interest stop categories are scored with
// a transfer-aware shortest-path search, and a bandit-guided local search
// edits the plan (frequency changes, stop insertions, removals and
// replacements) while keeping total scheduled service within a budget.
//
// Packages:
//
//	geo/         equirectangular distances, projection factor, rtree index
//	stops/       stop attribute table, CSV loader, category predicates
//	core/        stop graph with route-supported edges
//	plan/        plan state, edits, queries, JSON document, schedule derivation
//	pathsearch/  transfer-aware search, cost model, leg explanation
//	benchmark/   benchmark suite and evaluator
//	optimize/    edit commands, proposer, Q-table, optimizer, circle plan
//	store/       SQLite score log and plan snapshots
//	feed/        GTFS static adapter with S2 stop collapsing
//	config/      YAML configuration with validation and env overrides
//	logger/      zerolog console and rotating-file logging
//	runner/      concurrent multi-network runs with retries
//
// The transitplan command (cmd/transitplan) wires them together:
//
//	transitplan optimize
//	transitplan score  -network north
//	transitplan circle -network north
//	transitplan derive -network north
//
// Quick example:
//
//	p := plan.New("demo", []string{"A", "B", "C", "D"})
//	_ = p.AddStopToCurrentRoute("A")
//	_ = p.AddStopToCurrentRoute("B")
//	_ = p.AddStopToCurrentRoute("C")
//	p.EndCurrentRoute()
//
//	res, _ := pathsearch.Search(p, model, "A", []string{"C"})
//	fmt.Println(res.Cost, res.Edges)
package transitplan
