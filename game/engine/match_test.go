package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMatch(t *testing.T) {
	m := createTestMatch()

	assert.True(t, m.IsActive)
	assert.Nil(t, m.Winner)
	assert.Empty(t, m.Rounds)
	assert.Equal(t, 0, m.Player1Score)
	assert.Equal(t, 0, m.Player2Score)
	assert.Equal(t, "Match in progress", m.Status)
	assert.Nil(t, m.OpenRound())
	require.NoError(t, m.Validate(DefaultRules()))
}

func TestMatch_FullScenario(t *testing.T) {
	m := createTestMatch()
	rules := DefaultRules()

	round := mustPlay(t, m, "p1", Rock)
	assert.Nil(t, round, "first move must not complete a round")
	require.Len(t, m.Rounds, 1)
	assert.Equal(t, Rock, m.Rounds[0].Player1Move)
	assert.False(t, m.Rounds[0].Player2Move.IsSet())
	assert.Equal(t, "Round in progress", m.Rounds[0].Result)
	assert.Equal(t, 0, m.Player1Score)
	require.NoError(t, m.Validate(rules))

	round = mustPlay(t, m, "p2", Scissors)
	require.NotNil(t, round)
	require.NotNil(t, round.Winner)
	assert.Equal(t, "Ana", round.Winner.Name)
	assert.Equal(t, "Ana wins: ROCK beats SCISSORS (Luis)", round.Result)
	assert.Equal(t, 1, m.Player1Score)
	assert.Equal(t, 0, m.Player2Score)
	assert.Nil(t, m.OpenRound(), "completed round leaves nothing open")
	require.NoError(t, m.Validate(rules))

	for i := 0; i < 2; i++ {
		assert.True(t, m.IsActive, "match must stay active before the third win")
		mustPlay(t, m, "p1", Paper)
		mustPlay(t, m, "p2", Rock)
		require.NoError(t, m.Validate(rules))
	}

	assert.Equal(t, 3, m.Player1Score)
	assert.False(t, m.IsActive)
	require.NotNil(t, m.Winner)
	assert.Equal(t, "p1", m.Winner.ID)
	assert.Equal(t, "Match finished. Winner: Ana", m.Status)
	assert.Len(t, m.Rounds, 3)

	_, err := AdmissibleSlot(m, "p1")
	assert.ErrorIs(t, err, ErrMatchFinished)
}

func TestMatch_TieIsRecordedAndMovesOn(t *testing.T) {
	m := createTestMatch()

	mustPlay(t, m, "p1", Paper)
	round := mustPlay(t, m, "p2", Paper)

	require.NotNil(t, round)
	assert.Nil(t, round.Winner)
	assert.Equal(t, "Tie: both played PAPER", round.Result)
	assert.Equal(t, 0, m.Player1Score)
	assert.Equal(t, 0, m.Player2Score)
	assert.True(t, m.IsActive)
	assert.Nil(t, m.OpenRound(), "a tie must not reopen the round")

	mustPlay(t, m, "p1", Rock)
	assert.Len(t, m.Rounds, 2)
	require.NoError(t, m.Validate(DefaultRules()))
}

func TestMatch_Player2CanWin(t *testing.T) {
	m := createTestMatch()

	for i := 0; i < 3; i++ {
		mustPlay(t, m, "p1", Scissors)
		mustPlay(t, m, "p2", Rock)
	}

	assert.Equal(t, 0, m.Player1Score)
	assert.Equal(t, 3, m.Player2Score)
	assert.False(t, m.IsActive)
	require.NotNil(t, m.Winner)
	assert.Equal(t, "Luis", m.Winner.Name)
	assert.Equal(t, "Luis wins: ROCK beats SCISSORS (Ana)", m.Rounds[0].Result)
}

func TestMatch_ScoresAlwaysMatchRoundWins(t *testing.T) {
	m := createTestMatch()
	rules := DefaultRules()
	sequence := [][2]Move{
		{Rock, Paper}, {Rock, Rock}, {Scissors, Paper}, {Paper, Scissors},
		{Paper, Paper}, {Rock, Scissors}, {Scissors, Rock}, {Paper, Rock},
	}

	for _, pair := range sequence {
		if !m.IsActive {
			break
		}
		mustPlay(t, m, "p1", pair[0])
		require.NoError(t, m.Validate(rules))
		mustPlay(t, m, "p2", pair[1])
		require.NoError(t, m.Validate(rules))

		p1, p2 := 0, 0
		for _, r := range m.Rounds {
			if r.Winner != nil && r.Winner.ID == m.Player1.ID {
				p1++
			}
			if r.Winner != nil && r.Winner.ID == m.Player2.ID {
				p2++
			}
		}
		assert.Equal(t, p1, m.Player1Score)
		assert.Equal(t, p2, m.Player2Score)
	}
}

func TestMatch_CustomThreshold(t *testing.T) {
	m := createTestMatch()
	rules := Rules{WinThreshold: 1}

	slot, err := AdmissibleSlot(m, "p1")
	require.NoError(t, err)
	_, err = m.Play(slot, Rock, "r1", testTime, rules)
	require.NoError(t, err)

	slot, err = AdmissibleSlot(m, "p2")
	require.NoError(t, err)
	_, err = m.Play(slot, Scissors, "r1", testTime, rules)
	require.NoError(t, err)

	assert.False(t, m.IsActive)
	require.NoError(t, m.Validate(rules))
}

func TestMatch_PlayRejectsInconsistentSlot(t *testing.T) {
	m := createTestMatch()

	_, err := m.Play(Player2Slot, Rock, "r1", testTime, DefaultRules())
	assert.Error(t, err)
	assert.Empty(t, m.Rounds)

	mustPlay(t, m, "p1", Rock)
	_, err = m.Play(Player1Slot, Rock, "r2", testTime, DefaultRules())
	assert.Error(t, err)
	assert.Len(t, m.Rounds, 1)
}

func TestMatch_Restart(t *testing.T) {
	m := createTestMatch()
	for i := 0; i < 3; i++ {
		mustPlay(t, m, "p1", Rock)
		mustPlay(t, m, "p2", Scissors)
	}
	require.False(t, m.IsActive)

	m.Restart(testTime)

	assert.Equal(t, "m1", m.ID)
	assert.Equal(t, "Ana", m.Player1.Name)
	assert.Equal(t, "Luis", m.Player2.Name)
	assert.Empty(t, m.Rounds)
	assert.Equal(t, 0, m.Player1Score)
	assert.Equal(t, 0, m.Player2Score)
	assert.Nil(t, m.Winner)
	assert.True(t, m.IsActive)
	assert.Equal(t, "Match in progress", m.Status)
	require.NoError(t, m.Validate(DefaultRules()))

	_, err := AdmissibleSlot(m, "p2")
	assert.ErrorIs(t, err, ErrNotYourTurn, "player1 still starts after restart")
}

func TestMatch_CloneIsDeep(t *testing.T) {
	m := createTestMatch()
	mustPlay(t, m, "p1", Rock)
	mustPlay(t, m, "p2", Scissors)

	c := m.Clone()
	c.Rounds[0].Winner.Name = "changed"
	c.Rounds = append(c.Rounds, Round{ID: "extra"})
	c.Player1Score = 99

	assert.Equal(t, "Ana", m.Rounds[0].Winner.Name)
	assert.Len(t, m.Rounds, 1)
	assert.Equal(t, 1, m.Player1Score)
}

func TestMatch_JSON(t *testing.T) {
	m := createTestMatch()
	mustPlay(t, m, "p1", Rock)

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "m1", raw["id"])
	assert.Equal(t, true, raw["is_active"])
	assert.Nil(t, raw["winner"])

	rounds := raw["rounds"].([]any)
	require.Len(t, rounds, 1)
	round := rounds[0].(map[string]any)
	assert.Equal(t, "ROCK", round["player1_move"])
	assert.Nil(t, round["player2_move"], "unset move serializes as null")
	assert.Nil(t, round["winner"])

	var decoded Match
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, Rock, decoded.Rounds[0].Player1Move)
	assert.False(t, decoded.Rounds[0].Player2Move.IsSet())
}

func TestMatch_Validate(t *testing.T) {
	rules := DefaultRules()

	tests := []struct {
		name   string
		mutate func(m *Match)
	}{
		{"score without a win", func(m *Match) { m.Player2Score = 1 }},
		{"winner on active match", func(m *Match) { w := m.Player1; m.Winner = &w }},
		{"inactive without threshold", func(m *Match) { m.IsActive = false }},
		{"open round not last", func(m *Match) {
			m.Rounds = append([]Round{{ID: "x", Player1Move: Rock}}, m.Rounds...)
		}},
		{"wrong round winner", func(m *Match) { w := m.Player2; m.Rounds[0].Winner = &w }},
		{"missing player name", func(m *Match) { m.Player2.Name = " " }},
		{"same player twice", func(m *Match) { m.Player2.ID = m.Player1.ID }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := createTestMatch()
			mustPlay(t, m, "p1", Rock)
			mustPlay(t, m, "p2", Scissors)
			require.NoError(t, m.Validate(rules))

			tt.mutate(m)
			assert.ErrorIs(t, m.Validate(rules), ErrInvariant)
		})
	}
}
