package config

import "github.com/katalvlaran/transitplan/logger"

// Network is one transit network to optimize.
type Network struct {
	Name     string `yaml:"name" validate:"required,excludesall=/"`
	StopsCSV string `yaml:"stops_csv" validate:"required"`
	GTFSZip  string `yaml:"gtfs_zip" validate:"required_without=PlanJSON"`
	PlanJSON string `yaml:"plan_json"`
	Seed     int64  `yaml:"seed"`
	// CollapseLevel is the S2 level for grouping feed stops; 0 selects the default.
	CollapseLevel int `yaml:"collapse_level" validate:"gte=0,lte=30"`
}

// OptimizerConfig tunes the local search.
type OptimizerConfig struct {
	Iterations           int     `yaml:"iterations" validate:"gt=0"`
	InitialExplore       float64 `yaml:"initial_explore" validate:"gte=0,lte=1"`
	ExploreDecay         float64 `yaml:"explore_decay" validate:"gt=0,lte=1"`
	ExploreFloor         float64 `yaml:"explore_floor" validate:"gte=0,lte=1"`
	ToleranceProbability float64 `yaml:"tolerance_probability" validate:"gte=0,lte=1"`
	ToleranceFraction    float64 `yaml:"tolerance_fraction" validate:"gte=0"`
	BudgetFactor         float64 `yaml:"budget_factor" validate:"gt=0"`
	CircleRoutes         int     `yaml:"circle_routes" validate:"gte=0"`
	CircleRadius         float64 `yaml:"circle_radius_m" validate:"gt=0"`
}

// BenchmarkConfig tunes the evaluator.
type BenchmarkConfig struct {
	Repeats        int     `yaml:"repeats" validate:"gt=0"`
	PenaltyMinutes float64 `yaml:"penalty_minutes" validate:"gt=0"`
	Workers        int     `yaml:"workers" validate:"gt=0"`
}

// CostConfig holds the edge cost constants.
type CostConfig struct {
	AvgBusSpeed     float64 `yaml:"avg_bus_speed_m_per_min" validate:"gt=0"`
	StopPenalty     float64 `yaml:"stop_penalty_minutes" validate:"gte=0"`
	TransferPenalty float64 `yaml:"transfer_penalty_minutes" validate:"gte=0"`
	InitialBoarding bool    `yaml:"initial_boarding"`
}

// StoreConfig locates the score database and the snapshot files.
type StoreConfig struct {
	DBPath      string `yaml:"db_path" validate:"required"`
	SnapshotDir string `yaml:"snapshot_dir" validate:"required"`
}

// RunnerConfig controls the multi-network runner.
type RunnerConfig struct {
	MaxRetries int `yaml:"max_retries" validate:"gte=0"`
	// Parallel bounds concurrently optimized networks; 0 runs all at once.
	Parallel int `yaml:"parallel" validate:"gte=0"`
}

// Config is the root configuration.
type Config struct {
	Networks  []Network       `yaml:"networks" validate:"min=1,unique=Name,dive"`
	Optimizer OptimizerConfig `yaml:"optimizer"`
	Benchmark BenchmarkConfig `yaml:"benchmark"`
	Cost      CostConfig      `yaml:"cost"`
	Store     StoreConfig     `yaml:"store"`
	Runner    RunnerConfig    `yaml:"runner"`
	Log       logger.Config   `yaml:"log"`
}
