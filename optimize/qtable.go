package optimize

// qEntry is the running mean reward of one (kind, param) pair.
type qEntry struct {
	param float64
	q     float64
	count int
}

// QTable keeps a running mean of score deltas per (kind, param). Lower is
// better: a negative value means the action tended to improve the score.
type QTable struct {
	entries map[Kind][]qEntry
}

// NewQTable returns a table over every kind's grid with Q = 0 and counts of 1.
func NewQTable() *QTable {
	t := &QTable{entries: make(map[Kind][]qEntry)}
	for _, k := range Kinds() {
		grid := k.Grid()
		es := make([]qEntry, len(grid))
		for i, param := range grid {
			es[i] = qEntry{param: param, count: 1}
		}
		t.entries[k] = es
	}

	return t
}

// Update folds delta into Q(kind, param): n = count+1, q += (delta − q)/n.
// Unknown pairs are ignored.
func (t *QTable) Update(kind Kind, param, delta float64) {
	es := t.entries[kind]
	for i := range es {
		if es[i].param != param {
			continue
		}
		n := es[i].count + 1
		es[i].q += (delta - es[i].q) / float64(n)
		es[i].count = n
		return
	}
}

// Value returns Q(kind, param) and its update count.
func (t *QTable) Value(kind Kind, param float64) (q float64, count int) {
	for _, e := range t.entries[kind] {
		if e.param == param {
			return e.q, e.count
		}
	}

	return 0, 0
}

// Best picks, among kinds, the kind whose lowest Q is smallest, then that
// kind's lowest-Q param. Ties go to the earlier kind and the earlier param.
func (t *QTable) Best(kinds []Kind) (Kind, float64) {
	var (
		bestKind  Kind
		bestParam float64
		bestQ     float64
		found     bool
	)
	for _, k := range kinds {
		for _, e := range t.entries[k] {
			if !found || e.q < bestQ {
				bestKind, bestParam, bestQ, found = k, e.param, e.q, true
			}
		}
	}

	return bestKind, bestParam
}
