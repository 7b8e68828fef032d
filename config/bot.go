package config

import "time"

// BotDifficulty affects reaction time and decision quality
type BotDifficulty int

const (
	BotDifficultyEasy BotDifficulty = iota
	BotDifficultyNormal
	BotDifficultyHard
)

// BotDifficultyConfig holds tuning values for bot behavior at a specific difficulty
type BotDifficultyConfig struct {
	WanderInterval time.Duration // how long a movement direction is held
	FireInterval   time.Duration // minimum time between shots
	AttackRange    float64       // distance at which remote players are shot at
}

// BotConfigData holds all bot-related configuration
type BotConfigData struct {
	Difficulties map[BotDifficulty]BotDifficultyConfig

	// Pathfinding
	NavCellSize    float64       // nav grid cell side in pixels
	RepathInterval time.Duration // how often a chase path is recomputed
	WaypointReach  float64       // distance at which a waypoint counts as reached
}

// Bot holds bot AI configuration
var Bot BotConfigData

func init() {
	Bot = BotConfigData{
		Difficulties: map[BotDifficulty]BotDifficultyConfig{
			BotDifficultyEasy: {
				WanderInterval: 1500 * time.Millisecond,
				FireInterval:   time.Second,
				AttackRange:    80.0,
			},
			BotDifficultyNormal: {
				WanderInterval: time.Second,
				FireInterval:   500 * time.Millisecond,
				AttackRange:    120.0,
			},
			BotDifficultyHard: {
				WanderInterval: 600 * time.Millisecond,
				FireInterval:   250 * time.Millisecond,
				AttackRange:    160.0,
			},
		},
		NavCellSize:    16.0,
		RepathInterval: 500 * time.Millisecond,
		WaypointReach:  4.0,
	}
}
