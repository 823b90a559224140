package feed

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAthleteMatches(t *testing.T) {
	alice := Activity{Athlete: "Alice Smith", Title: "Morning Run"}
	bob := Activity{Athlete: "Bob Stone", Title: "Evening Ride"}

	require.True(t, AthleteMatches("alice")(alice))
	require.True(t, AthleteMatches("ALICE S")(alice))
	require.False(t, AthleteMatches("alice")(bob))
	require.False(t, AthleteMatches("-alice")(alice))
	require.True(t, AthleteMatches("-alice")(bob))
	require.True(t, AthleteMatches("")(bob))
	require.True(t, AthleteMatches("-")(bob))
}

func TestTitleMatches(t *testing.T) {
	run := Activity{Title: "Morning Run"}
	require.True(t, TitleMatches("run")(run))
	require.False(t, TitleMatches("-run")(run))
	require.False(t, TitleMatches("ride")(run))
}

func TestAthleteSimilar(t *testing.T) {
	pred := AthleteSimilar("Alice Smyth", 0.9)
	require.True(t, pred(Activity{Athlete: "Alice Smith"}))
	require.False(t, pred(Activity{Athlete: "Bob Stone"}))
}

func TestAll(t *testing.T) {
	a := Activity{Athlete: "Alice Smith", Kudoed: true}
	require.True(t, All()(a))
	require.True(t, All(AthleteMatches("alice"), nil, KudoGiven(true))(a))
	require.False(t, All(AthleteMatches("alice"), KudoGiven(false))(a))
}
