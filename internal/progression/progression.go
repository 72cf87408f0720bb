package progression

import (
	"fmt"
	"math"

	"insightQuestAPI/internal/apperr"
)

type Stage string

const (
	StageSpark Stage = "Spark"
	StageGlow  Stage = "Glow"
	StageBlaze Stage = "Blaze"
	StageNova  Stage = "Nova"
	StageOrbit Stage = "Orbit"
)

const xpPerLevelUnit = 100

// stageTable maps the lowest level of each bucket to its stage. Ordered ascending.
var stageTable = []struct {
	minLevel int
	stage    Stage
}{
	{1, StageSpark},
	{5, StageGlow},
	{10, StageBlaze},
	{15, StageNova},
	{20, StageOrbit},
}

// Level returns floor(sqrt(xp/100)) + 1.
func Level(xp int) (int, error) {
	if xp < 0 {
		return 0, fmt.Errorf("%w: xp must be non-negative, got %d", apperr.ErrInvalidArgument, xp)
	}

	level := int(math.Sqrt(float64(xp)/xpPerLevelUnit)) + 1

	// float rounding can land one off on perfect squares
	for LevelFloorXP(level+1) <= xp {
		level++
	}
	for level > 1 && LevelFloorXP(level) > xp {
		level--
	}

	return level, nil
}

func LevelFloorXP(level int) int {
	return (level - 1) * (level - 1) * xpPerLevelUnit
}

func LevelCeilXP(level int) int {
	return level * level * xpPerLevelUnit
}

// LevelProgress is the percentage [0,100) of the way from the current level floor to the next.
func LevelProgress(xp int) (float64, error) {
	level, err := Level(xp)
	if err != nil {
		return 0, err
	}

	floor := LevelFloorXP(level)
	ceil := LevelCeilXP(level)

	return float64(xp-floor) / float64(ceil-floor) * 100, nil
}

func StageFor(level int) Stage {
	stage := StageSpark
	for _, bucket := range stageTable {
		if level >= bucket.minLevel {
			stage = bucket.stage
		}
	}
	return stage
}

type Snapshot struct {
	XP            int     `json:"xp"`
	Level         int     `json:"level"`
	LevelProgress float64 `json:"levelProgress"`
	Stage         Stage   `json:"stage"`
	NextLevelXP   int     `json:"nextLevelXp"`
}

func Describe(xp int) (Snapshot, error) {
	level, err := Level(xp)
	if err != nil {
		return Snapshot{}, err
	}
	progress, err := LevelProgress(xp)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		XP:            xp,
		Level:         level,
		LevelProgress: progress,
		Stage:         StageFor(level),
		NextLevelXP:   LevelCeilXP(level),
	}, nil
}
