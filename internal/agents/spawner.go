// Agent spawning: creates the initial population with normally
// distributed skills.
package agents

import (
	"math/rand"

	"github.com/talgya/spell-market/internal/entropy"
)

// SpawnConfig controls initial population generation.
type SpawnConfig struct {
	Seed         int64
	SkillMean    float64
	SkillStdDev  float64
	InitialMagic float64
}

// DefaultSpawnConfig returns the stock population parameters.
func DefaultSpawnConfig() SpawnConfig {
	return SpawnConfig{
		Seed:         42,
		SkillMean:    2.0,
		SkillStdDev:  0.8,
		InitialMagic: 30.0,
	}
}

// Spawner creates agents for the simulation.
type Spawner struct {
	cfg    SpawnConfig
	rules  *Rules
	rng    *rand.Rand
	nextID AgentID
}

// NewSpawner creates an agent spawner with the given config.
func NewSpawner(cfg SpawnConfig, rules *Rules) *Spawner {
	return &Spawner{
		cfg:    cfg,
		rules:  rules,
		rng:    entropy.New(cfg.Seed + entropy.StreamSpawn),
		nextID: 1,
	}
}

// SpawnPopulation creates count agents.
func (s *Spawner) SpawnPopulation(count int) []*Agent {
	agents := make([]*Agent, 0, count)
	for i := 0; i < count; i++ {
		agents = append(agents, s.spawnOne())
	}
	return agents
}

func (s *Spawner) spawnOne() *Agent {
	id := s.nextID
	s.nextID++

	skills := make([]float64, len(s.rules.Table))
	for i := range skills {
		// A normal draw can go negative; nobody starts worse than unable.
		skill := s.cfg.SkillMean + s.rng.NormFloat64()*s.cfg.SkillStdDev
		if skill < 0 {
			skill = 0
		}
		skills[i] = skill
	}

	return New(id, s.rules, skills, s.cfg.InitialMagic, entropy.Derive(s.cfg.Seed, entropy.StreamAgent, uint64(id)))
}
