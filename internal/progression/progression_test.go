package progression

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightQuestAPI/internal/apperr"
)

func TestLevel_Boundaries(t *testing.T) {
	cases := map[int]int{
		0:    1,
		99:   1,
		100:  2,
		150:  2,
		399:  2,
		400:  3,
		899:  3,
		900:  4,
		8100: 10,
	}

	for xp, want := range cases {
		got, err := Level(xp)
		require.NoError(t, err)
		assert.Equal(t, want, got, "xp=%d", xp)
	}
}

func TestLevel_RejectsNegativeXP(t *testing.T) {
	_, err := Level(-1)
	assert.True(t, errors.Is(err, apperr.ErrInvalidArgument))

	_, err = LevelProgress(-5)
	assert.True(t, errors.Is(err, apperr.ErrInvalidArgument))
}

func TestLevel_MonotonicAndBracketed(t *testing.T) {
	prev := 1
	for xp := 0; xp <= 50000; xp += 7 {
		level, err := Level(xp)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, level, 1)
		assert.GreaterOrEqual(t, level, prev, "level dropped at xp=%d", xp)
		assert.LessOrEqual(t, LevelFloorXP(level), xp)
		assert.Less(t, xp, LevelCeilXP(level))

		prev = level
	}
}

func TestLevelProgress(t *testing.T) {
	progress, err := LevelProgress(0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, progress)

	// level 2 spans 100..400
	progress, err = LevelProgress(250)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, progress, 0.0001)

	for xp := 0; xp < 10000; xp += 13 {
		p, err := LevelProgress(xp)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.Less(t, p, 100.0)
	}
}

func TestStageFor(t *testing.T) {
	assert.Equal(t, StageSpark, StageFor(1))
	assert.Equal(t, StageSpark, StageFor(4))
	assert.Equal(t, StageGlow, StageFor(5))
	assert.Equal(t, StageBlaze, StageFor(10))
	assert.Equal(t, StageNova, StageFor(19))
	assert.Equal(t, StageOrbit, StageFor(20))
	assert.Equal(t, StageOrbit, StageFor(500))

	rank := map[Stage]int{StageSpark: 0, StageGlow: 1, StageBlaze: 2, StageNova: 3, StageOrbit: 4}
	prev := 0
	for level := 1; level <= 100; level++ {
		r := rank[StageFor(level)]
		assert.GreaterOrEqual(t, r, prev)
		prev = r
	}
}

func TestDescribe_NewUser(t *testing.T) {
	snap, err := Describe(0)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Level)
	assert.Equal(t, StageSpark, snap.Stage)
	assert.Equal(t, 100, snap.NextLevelXP)

	snap, err = Describe(150)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Level)
}
