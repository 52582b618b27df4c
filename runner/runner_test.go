package runner_test

import (
	"archive/zip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/transitplan/config"
	"github.com/katalvlaran/transitplan/plan"
	"github.com/katalvlaran/transitplan/runner"
	"github.com/katalvlaran/transitplan/stops"
	"github.com/katalvlaran/transitplan/store"
)

const gridSize = 5

func cell(r, c int) string { return fmt.Sprintf("s%d_%d", r, c) }

// fixture writes a 5x5 stop grid and a plan with one route per row and per
// column, and returns a config with one network over them.
func fixture(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()

	var b strings.Builder
	b.WriteString("stop_id,stop_name,stop_lat,stop_lon,renter_occupied_share,vehicle_share,poverty_under_200_share,near_hospital,near_park\n")
	var ids []string
	for r := 0; r < gridSize; r++ {
		for c := 0; c < gridSize; c++ {
			renter, vehicle, poverty := 0.1, 0.9, 0.1
			if r%2 == 0 {
				renter, vehicle, poverty = 0.5, 0.2, 0.3
			}
			hospital := r == gridSize-1 && c == gridSize-1
			park := r == 0 && c == gridSize-1
			fmt.Fprintf(&b, "%s,Stop %d-%d,%.3f,%.3f,%.1f,%.1f,%.1f,%t,%t\n",
				cell(r, c), r, c, float64(r)*0.005, float64(c)*0.005, renter, vehicle, poverty, hospital, park)
			ids = append(ids, cell(r, c))
		}
	}
	csvPath := filepath.Join(dir, "stops.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(b.String()), 0o644))

	p := plan.New("seed", ids)
	for r := 0; r < gridSize; r++ {
		for c := 0; c < gridSize; c++ {
			require.NoError(t, p.AddStopToCurrentRoute(cell(r, c)))
		}
		p.EndCurrentRoute()
	}
	for c := 0; c < gridSize; c++ {
		for r := 0; r < gridSize; r++ {
			require.NoError(t, p.AddStopToCurrentRoute(cell(r, c)))
		}
		p.EndCurrentRoute()
	}
	planPath, err := store.WriteSnapshotFile(dir, p)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Networks = []config.Network{{Name: "grid", StopsCSV: csvPath, PlanJSON: planPath, Seed: 3}}
	cfg.Optimizer.Iterations = 12
	cfg.Optimizer.CircleRoutes = 2
	cfg.Optimizer.CircleRadius = 600
	cfg.Benchmark.Repeats = 1
	cfg.Runner.MaxRetries = 2
	cfg.Store.SnapshotDir = filepath.Join(dir, "snapshots")
	cfg.Store.DBPath = filepath.Join(dir, "score.db")

	return cfg
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	cfg := fixture(t)
	cfg.Networks = append(cfg.Networks, config.Network{
		Name:     "broken",
		StopsCSV: filepath.Join(t.TempDir(), "missing.csv"),
		PlanJSON: cfg.Networks[0].PlanJSON,
	})

	st, err := store.Open(ctx, cfg.Store.DBPath)
	require.NoError(t, err)
	defer st.Close()

	id := store.NewRunID()
	r := runner.New(cfg, runner.WithStore(st), runner.WithRunID(id))
	outs, err := r.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network broken")
	require.Len(t, outs, 2)

	grid := outs[0]
	require.NoError(t, grid.Err)
	assert.Equal(t, "grid", grid.Network)
	assert.Equal(t, id, grid.RunID)
	assert.Equal(t, 1, grid.Attempts)
	assert.Len(t, grid.Result.Bests, cfg.Optimizer.Iterations)
	assert.LessOrEqual(t, grid.Result.Best, grid.Result.OriginalScore)

	broken := outs[1]
	assert.Error(t, broken.Err)
	assert.Equal(t, cfg.Runner.MaxRetries+1, broken.Attempts)

	events, err := st.Events(ctx, id, "grid")
	require.NoError(t, err)
	assert.Len(t, events, cfg.Optimizer.Iterations)

	run, err := st.GetRun(ctx, id, "grid")
	require.NoError(t, err)
	assert.Equal(t, store.StatusDone, run.Status)
	assert.Equal(t, grid.Result.Best, run.BestScore)
	run, err = st.GetRun(ctx, id, "broken")
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, run.Status)

	dir := r.SnapshotDir("grid")
	for _, name := range []string{runner.OriginalName, runner.BestName} {
		doc, err := store.LoadSnapshotFile(store.SnapshotPath(dir, name))
		require.NoError(t, err, name)
		p, err := plan.FromDocument(name, nil, doc)
		require.NoError(t, err)
		require.NoError(t, p.Check())
	}
	best, err := st.LoadSnapshot(ctx, "grid", runner.BestName)
	require.NoError(t, err)
	assert.Equal(t, id, best.RunID)
	if grid.Result.Accepted > 0 {
		_, err := os.Stat(store.SnapshotPath(dir, runner.WorkingName))
		assert.NoError(t, err)
	}
}

func TestRun_DeterministicPerSeed(t *testing.T) {
	ctx := context.Background()
	cfg := fixture(t)

	a, err := runner.New(cfg).Run(ctx)
	require.NoError(t, err)
	b, err := runner.New(cfg).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, a[0].Result.Bests, b[0].Result.Bests)
	assert.Equal(t, a[0].Result.Scores, b[0].Result.Scores)
	assert.True(t, a[0].Result.BestPlan.Equal(b[0].Result.BestPlan))
}

func TestRun_Canceled(t *testing.T) {
	cfg := fixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outs, err := runner.New(cfg).Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, outs[0].Err, context.Canceled)
	assert.Equal(t, 1, outs[0].Attempts, "a canceled run is not retried")
}

func TestScore(t *testing.T) {
	ctx := context.Background()
	cfg := fixture(t)
	r := runner.New(cfg)

	score, err := r.Score(ctx, "grid")
	require.NoError(t, err)
	assert.Greater(t, score.Mean, 0.0)
	assert.NotEmpty(t, score.Trips)

	again, err := r.Score(ctx, "grid")
	require.NoError(t, err)
	assert.Equal(t, score.Mean, again.Mean, "each call uses a freshly seeded evaluator")

	_, err = r.Score(ctx, "nowhere")
	assert.ErrorIs(t, err, config.ErrUnknownNetwork)
}

func TestCircle(t *testing.T) {
	cfg := fixture(t)
	r := runner.New(cfg)

	rep, err := r.Circle(context.Background(), "grid")
	require.NoError(t, err)
	assert.Greater(t, rep.Routes, 0)
	assert.LessOrEqual(t, rep.Routes, 2*cfg.Optimizer.CircleRoutes)
	assert.Greater(t, rep.Original, 0.0)
	assert.Greater(t, rep.Circle, 0.0)
	assert.Equal(t, store.SnapshotPath(r.SnapshotDir("grid"), runner.CircleName), rep.Path)
	_, err = os.Stat(rep.Path)
	assert.NoError(t, err)
}

func TestDerive_NeedsFeed(t *testing.T) {
	cfg := fixture(t)
	_, err := runner.New(cfg).Derive(context.Background(), "grid")
	assert.ErrorIs(t, err, runner.ErrNoFeed)
}

// writeFeed writes a GTFS zip with four free-standing stops S1..S4 about
// 555 m apart and two trips of route R1 calling at them in order.
func writeFeed(t *testing.T, dir string) string {
	t.Helper()
	files := []struct{ name, body string }{
		{"agency.txt", "agency_name,agency_url,agency_timezone\nTransit,https://example.org,UTC\n"},
		{"routes.txt", "route_id,route_short_name,route_type\nR1,1,3\n"},
		{"stops.txt", "stop_id,stop_name,stop_lat,stop_lon\n" +
			"S1,First,40.000,-73.000\n" +
			"S2,Second,40.005,-73.000\n" +
			"S3,Third,40.010,-73.000\n" +
			"S4,Fourth,40.015,-73.000\n"},
		{"calendar.txt", "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n" +
			"WK,1,1,1,1,1,0,0,20240101,20241231\n"},
		{"trips.txt", "route_id,service_id,trip_id\nR1,WK,T1\nR1,WK,T2\n"},
		{"stop_times.txt", "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
			"T1,08:00:00,08:00:00,S1,1\nT1,08:02:00,08:02:00,S2,2\nT1,08:04:00,08:04:00,S3,3\nT1,08:06:00,08:06:00,S4,4\n" +
			"T2,08:20:00,08:20:00,S1,1\nT2,08:22:00,08:22:00,S2,2\nT2,08:24:00,08:24:00,S3,3\nT2,08:26:00,08:26:00,S4,4\n"},
	}

	path := filepath.Join(dir, "feed.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for _, file := range files {
		w, err := zw.Create(file.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(file.body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	return path
}

func TestDerive_ThenScore(t *testing.T) {
	ctx := context.Background()
	cfg := fixture(t)
	dir := t.TempDir()
	cfg.Networks = []config.Network{{
		Name:     "feed",
		StopsCSV: cfg.Networks[0].StopsCSV,
		GTFSZip:  writeFeed(t, dir),
		Seed:     5,
	}}
	r := runner.New(cfg)

	// The grid table knows none of the collapsed feed stops.
	_, err := r.Score(ctx, "feed")
	require.ErrorIs(t, err, runner.ErrUnplacedStops)

	rep, err := r.Derive(ctx, "feed")
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Routes)
	assert.Equal(t, 4, rep.Stops)
	assert.Zero(t, rep.Unlocated)
	assert.Equal(t, filepath.Join(r.SnapshotDir("feed"), runner.NodesFile), rep.Nodes)
	assert.Equal(t, store.SnapshotPath(r.SnapshotDir("feed"), runner.OriginalName), rep.Plan)

	// Join demographics onto the derived table: S1 is transit-dependent and
	// S4 is near a hospital.
	nodes, err := stops.LoadCSVFile(rep.Nodes)
	require.NoError(t, err)
	var rows []stops.Stop
	for _, id := range nodes.IDs() {
		s, _ := nodes.Get(id)
		row := *s
		row.Near = map[string]bool{}
		switch row.Name {
		case "S1":
			row.RenterShare, row.VehicleShare, row.PovertyShare = 0.5, 0.2, 0.3
		case "S4":
			row.Near[stops.NearHospital] = true
		}
		rows = append(rows, row)
	}
	enriched, err := stops.NewTable(rows)
	require.NoError(t, err)
	cfg.Networks[0].StopsCSV = filepath.Join(dir, "enriched.csv")
	require.NoError(t, stops.WriteCSVFile(cfg.Networks[0].StopsCSV, enriched))

	r = runner.New(cfg)
	n, err := r.Prepare(ctx, cfg.Networks[0])
	require.NoError(t, err)
	assert.Empty(t, n.Unplaced())
	assert.Greater(t, n.Original.TotalScheduledMinutes(), 0.0)
	h, _ := n.Original.Headway("R1")
	assert.Equal(t, 20.0, h)

	score, err := r.Score(ctx, "feed")
	require.NoError(t, err)
	hospital := 0
	for _, trip := range score.Trips {
		if trip.Category != "hospital" {
			continue
		}
		hospital++
		assert.True(t, trip.Result.Found, "S1 reaches S4 on R1")
		assert.Less(t, trip.Cost, cfg.Benchmark.PenaltyMinutes)
	}
	assert.Equal(t, 2*cfg.Benchmark.Repeats, hospital)
}
