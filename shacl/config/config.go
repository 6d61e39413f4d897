// Package config is the Config record (§9): the run-wide options the
// CLI assembles from a YAML file and then overrides with flags, later
// wins.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Heuristic names one of TraversalPlanner's starting-point/ordering
// preferences (§5).
type Heuristic string

const (
	HeuristicTarget Heuristic = "TARGET"
	HeuristicIn     Heuristic = "IN"
	HeuristicOut    Heuristic = "OUT"
	HeuristicInOut  Heuristic = "INOUT"
	HeuristicOutIn  Heuristic = "OUTIN"
	HeuristicSmall  Heuristic = "SMALL"
	HeuristicBig    Heuristic = "BIG"
)

// Traversal selects the linearization strategy TraversalPlanner uses.
type Traversal string

const (
	BFS Traversal = "BFS"
	DFS Traversal = "DFS"
)

// Config is the full set of options one validation run needs (§9).
type Config struct {
	SchemaDir      string      `yaml:"schema_dir"`
	Endpoint       string      `yaml:"endpoint"`
	GraphTraversal Traversal   `yaml:"graph_traversal"`
	Heuristics     []Heuristic `yaml:"heuristics"`
	Selective      bool        `yaml:"selective"`
	OrderBy        bool        `yaml:"order_by"`
	MaxSplitSize   int         `yaml:"max_split_size"`
	SaveOutputs    bool        `yaml:"save_outputs"`
	OutputDir      string      `yaml:"output_dir"`
	UseJSON        bool        `yaml:"use_json"`
}

// Default returns a Config with every documented default applied
// (§9): BFS traversal, the target-degree-properties heuristic chain,
// and the 256-instance query-split threshold used throughout §4.3/§4.4.
func Default() Config {
	return Config{
		GraphTraversal: BFS,
		Heuristics:     []Heuristic{HeuristicTarget, HeuristicOutIn, HeuristicSmall},
		MaxSplitSize:   256,
	}
}

// Load reads a YAML config file, applying its values over Default().
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %q: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file %q: %w", path, err)
	}
	return cfg, nil
}

// Validate reports a missing required field (§7 taxonomy: "a config
// error is reported before any query is issued").
func (c Config) Validate() error {
	if c.SchemaDir == "" {
		return fmt.Errorf("config error: schema_dir is required")
	}
	if c.Endpoint == "" {
		return fmt.Errorf("config error: endpoint is required")
	}
	if c.GraphTraversal != BFS && c.GraphTraversal != DFS {
		return fmt.Errorf("config error: graph_traversal must be BFS or DFS, got %q", c.GraphTraversal)
	}
	if c.MaxSplitSize <= 0 {
		return fmt.Errorf("config error: max_split_size must be positive, got %d", c.MaxSplitSize)
	}
	return nil
}
