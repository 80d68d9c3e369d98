package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed games.yaml
var defaultGames []byte

type GamesConfig struct {
	RTP   string    `yaml:"rtp"`
	Games []GameDef `yaml:"games"`
}

// GameDef describes one entry of the game catalogue. Only the fields that
// matter for Kind are read.
type GameDef struct {
	ID         int64       `yaml:"id"`
	Name       string      `yaml:"name"`
	Kind       string      `yaml:"kind"`
	ProfitCoef string      `yaml:"profit_coef,omitempty"`
	DrawCoef   string      `yaml:"draw_coef,omitempty"`
	Cars       int         `yaml:"cars,omitempty"`
	FreeSpins  int         `yaml:"free_spins,omitempty"`
	Symbols    []SymbolDef `yaml:"symbols,omitempty"`
	Payouts    []string    `yaml:"payouts,omitempty"`
}

type SymbolDef struct {
	Name       string `yaml:"name"`
	Weight     int    `yaml:"weight"`
	Multiplier string `yaml:"multiplier,omitempty"`
	Scatter    bool   `yaml:"scatter,omitempty"`
}

// LoadGames reads the catalogue from path, or the embedded default when path
// is empty.
func LoadGames(path string) (*GamesConfig, error) {
	data := defaultGames
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read games config: %w", err)
		}
		data = b
	}
	return ParseGames(data)
}

func ParseGames(data []byte) (*GamesConfig, error) {
	var cfg GamesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse games config: %w", err)
	}
	if cfg.RTP == "" {
		cfg.RTP = "0.99"
	}

	seen := make(map[int64]bool, len(cfg.Games))
	for _, g := range cfg.Games {
		if g.ID <= 0 {
			return nil, fmt.Errorf("game %q has invalid id %d", g.Name, g.ID)
		}
		if seen[g.ID] {
			return nil, fmt.Errorf("duplicate game id %d", g.ID)
		}
		seen[g.ID] = true
		if g.Kind == "" {
			return nil, fmt.Errorf("game %d has no kind", g.ID)
		}
	}
	return &cfg, nil
}
