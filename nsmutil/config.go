// Package nsmutil loads a simulation scenario from a viper
// configuration and assembles it into a running nsm.Operator: the grid,
// species, reactions and diffusion it describes.
package nsmutil

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/lnashier/viper"

	"github.com/rdsim/nsm/grid"
	"github.com/rdsim/nsm/nsm"
	"github.com/rdsim/nsm/nsmerr"
	"github.com/rdsim/nsm/reaction"
	"github.com/rdsim/nsm/species"
)

// GridConfig describes the structured grid a scenario runs on, mirroring
// VarGridConfig's GetFloat64/Get shape for the fields viper owns.
type GridConfig struct {
	LowX, LowY, LowZ                float64
	HighX, HighY, HighZ             float64
	CellSizeX, CellSizeY, CellSizeZ float64
}

// SpeciesConfig describes one chemical species and its initial loading.
type SpeciesConfig struct {
	Name           string
	D              float64
	InitialUniform int
	Diffuses       bool
}

// ReactionComponentConfig is one LHS/RHS component of a configured
// reaction equation, referencing a species by name.
type ReactionComponentConfig struct {
	Species string
	Mult    int
}

// ReactionConfig describes one spatially-uniform reaction, installed
// into every compartment via nsm.Operator.AddReaction.
type ReactionConfig struct {
	Rate float64
	LHS  []ReactionComponentConfig
	RHS  []ReactionComponentConfig
}

// ScenarioConfig is the full, unmarshalled shape of a scenario file:
// grid, species, reactions, RNG seed and run length.
type ScenarioConfig struct {
	Grid      GridConfig
	Species   []SpeciesConfig
	Reactions []ReactionConfig
	Seed      int64
	RunTime   float64
	LogFile   string
	OutputFile string
}

// LoadScenarioConfig unmarshals cfg's Grid/Species/Reactions/Seed/RunTime
// variables into a ScenarioConfig, expanding environment variables in
// the LogFile and OutputFile paths the way inmaputil's config helpers
// do.
func LoadScenarioConfig(cfg *viper.Viper) (*ScenarioConfig, error) {
	sc := &ScenarioConfig{
		Grid: GridConfig{
			LowX: cfg.GetFloat64("Grid.LowX"), LowY: cfg.GetFloat64("Grid.LowY"), LowZ: cfg.GetFloat64("Grid.LowZ"),
			HighX: cfg.GetFloat64("Grid.HighX"), HighY: cfg.GetFloat64("Grid.HighY"), HighZ: cfg.GetFloat64("Grid.HighZ"),
			CellSizeX: cfg.GetFloat64("Grid.CellSizeX"), CellSizeY: cfg.GetFloat64("Grid.CellSizeY"), CellSizeZ: cfg.GetFloat64("Grid.CellSizeZ"),
		},
		Seed:       cfg.GetInt64("Seed"),
		RunTime:    cfg.GetFloat64("RunTime"),
		LogFile:    os.ExpandEnv(cfg.GetString("LogFile")),
		OutputFile: os.ExpandEnv(cfg.GetString("OutputFile")),
	}

	rawSpecies, ok := cfg.Get("Species").([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: Species configuration variable is missing or not a list", nsmerr.ErrInvalidConfiguration)
	}
	for _, raw := range rawSpecies {
		m, ok := raw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: Species entry %#v is not an object", nsmerr.ErrInvalidConfiguration, raw)
		}
		sc.Species = append(sc.Species, SpeciesConfig{
			Name:           asString(m["Name"]),
			D:              asFloat(m["D"]),
			InitialUniform: int(asFloat(m["InitialUniform"])),
			Diffuses:       asBool(m["Diffuses"]),
		})
	}

	rawReactions, _ := cfg.Get("Reactions").([]interface{})
	for _, raw := range rawReactions {
		m, ok := raw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: Reactions entry %#v is not an object", nsmerr.ErrInvalidConfiguration, raw)
		}
		sc.Reactions = append(sc.Reactions, ReactionConfig{
			Rate: asFloat(m["Rate"]),
			LHS:  asComponents(m["LHS"]),
			RHS:  asComponents(m["RHS"]),
		})
	}

	if sc.Grid.CellSizeX <= 0 || sc.Grid.CellSizeY <= 0 || sc.Grid.CellSizeZ <= 0 {
		return nil, fmt.Errorf("%w: Grid.CellSize* must be positive", nsmerr.ErrInvalidConfiguration)
	}
	return sc, nil
}

func asComponents(raw interface{}) []ReactionComponentConfig {
	list, _ := raw.([]interface{})
	out := make([]ReactionComponentConfig, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, ReactionComponentConfig{
			Species: asString(m["Species"]),
			Mult:    int(asFloat(m["Mult"])),
		})
	}
	return out
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func asBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

// Build assembles sc into a ready-to-run nsm.Operator: constructs the
// structured grid, binds and seeds every species, installs every
// configured reaction and, for species marked Diffuses, the uniform
// neighbour-diffusion reactions from nsm.Operator.AddDiffusion.
func Build(sc *ScenarioConfig) (*nsm.Operator, map[string]*species.Species, error) {
	g, err := grid.NewStructuredGrid(
		grid.Point3{X: sc.Grid.LowX, Y: sc.Grid.LowY, Z: sc.Grid.LowZ},
		grid.Point3{X: sc.Grid.HighX, Y: sc.Grid.HighY, Z: sc.Grid.HighZ},
		grid.Point3{X: sc.Grid.CellSizeX, Y: sc.Grid.CellSizeY, Z: sc.Grid.CellSizeZ},
	)
	if err != nil {
		return nil, nil, fmt.Errorf("nsmutil: building grid: %w", err)
	}

	specs := make(map[string]*species.Species, len(sc.Species))
	for _, scfg := range sc.Species {
		s, err := species.New(scfg.Name, scfg.D)
		if err != nil {
			return nil, nil, fmt.Errorf("nsmutil: species %q: %w", scfg.Name, err)
		}
		s.Bind(g)
		if scfg.InitialUniform != 0 {
			for i := 0; i < g.Size(); i++ {
				if err := s.Add(i, scfg.InitialUniform); err != nil {
					return nil, nil, fmt.Errorf("nsmutil: seeding species %q: %w", scfg.Name, err)
				}
			}
		}
		specs[scfg.Name] = s
	}

	op := nsm.New(g, rand.New(rand.NewSource(sc.Seed)))

	for _, rcfg := range sc.Reactions {
		eq, err := buildEquation(rcfg, specs)
		if err != nil {
			return nil, nil, err
		}
		if err := op.AddReaction(rcfg.Rate, eq); err != nil {
			return nil, nil, fmt.Errorf("nsmutil: installing reaction: %w", err)
		}
	}

	for _, scfg := range sc.Species {
		if !scfg.Diffuses {
			continue
		}
		if err := op.AddDiffusion(specs[scfg.Name]); err != nil {
			return nil, nil, fmt.Errorf("nsmutil: installing diffusion for %q: %w", scfg.Name, err)
		}
	}

	op.ResetAllPriorities()
	return op, specs, nil
}

func buildEquation(rcfg ReactionConfig, specs map[string]*species.Species) (reaction.Equation, error) {
	lhs, err := buildSide(rcfg.LHS, specs)
	if err != nil {
		return reaction.Equation{}, err
	}
	rhs, err := buildSide(rcfg.RHS, specs)
	if err != nil {
		return reaction.Equation{}, err
	}
	return reaction.Equation{LHS: lhs, RHS: rhs}, nil
}

func buildSide(comps []ReactionComponentConfig, specs map[string]*species.Species) (reaction.Side, error) {
	side := make(reaction.Side, 0, len(comps))
	for _, c := range comps {
		s, ok := specs[c.Species]
		if !ok {
			return nil, fmt.Errorf("%w: reaction references undeclared species %q", nsmerr.ErrInvalidConfiguration, c.Species)
		}
		side = append(side, reaction.Component{Mult: c.Mult, Species: s, Compartment: reaction.Unset})
	}
	return side, nil
}
