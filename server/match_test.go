package server

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuel_EndToEnd(t *testing.T) {
	e, s := newTestEngine(t)
	alice, bob := newPeer("alice"), newPeer("bob")

	joinDuel(t, e, alice, 1000)
	joinDuel(t, e, bob, 1200)

	fa := decode[matchFoundPayload](t, alice.last(t, OutMatchFound))
	fb := decode[matchFoundPayload](t, bob.last(t, OutMatchFound))
	assert.Equal(t, fa.MatchID, fb.MatchID)
	assert.NotZero(t, fa.MatchID)
	assert.Equal(t, "duel", fa.Mode)
	assert.Equal(t, PublicProfile{ID: "bob", Name: "bob", Rating: 1200}, fa.Opponent)
	assert.Equal(t, PublicProfile{ID: "alice", Name: "alice", Rating: 1000}, fb.Opponent)

	for i := 0; i < 3; i++ {
		require.Equal(t, 1, s.fire(time.Second))
	}

	var counts []int
	for _, m := range alice.out {
		if m.Type == OutCountdown {
			counts = append(counts, decode[countdownPayload](t, m).Count)
		}
	}
	assert.Equal(t, []int{3, 2, 1, 0}, counts)
	assert.Equal(t, 1, alice.count(OutMatchStart))
	assert.Equal(t, 1, bob.count(OutMatchStart))
	assert.Equal(t, MatchPlaying, e.matches[fa.MatchID].State)

	e.Dispatch(alice, msg(t, TagPlayerDeath, nil))

	endA := decode[matchEndPayload](t, alice.last(t, OutMatchEnd))
	endB := decode[matchEndPayload](t, bob.last(t, OutMatchEnd))
	assert.False(t, endA.Won)
	assert.True(t, endB.Won)
	assert.Equal(t, -8, endA.RatingChange)
	assert.Equal(t, 8, endB.RatingChange)
	assert.Equal(t, 992, endA.NewRating)
	assert.Equal(t, 1208, endB.NewRating)
	assert.Equal(t, "bob", endA.OpponentName)
	assert.Equal(t, "alice", endB.OpponentName)
	assert.Equal(t, reasonDeath, endA.Reason)

	pa, _ := e.registry.Lookup(alice)
	pb, _ := e.registry.Lookup(bob)
	assert.Zero(t, pa.MatchID)
	assert.Zero(t, pb.MatchID)
	assert.Equal(t, 992, pa.Rating)
	assert.Equal(t, 1208, pb.Rating)
}

func TestDuel_TerminationHappensOnce(t *testing.T) {
	e, s := newTestEngine(t)
	alice, bob := newPeer("alice"), newPeer("bob")
	m := startDuel(t, e, s, alice, bob, 1000, 1000)

	e.Dispatch(alice, msg(t, TagPlayerDeath, nil))
	e.Dispatch(alice, msg(t, TagPlayerDeath, nil))
	e.Dispatch(bob, msg(t, TagPlayerDeath, nil))
	e.HandleClose(bob)

	assert.Equal(t, 1, alice.count(OutMatchEnd))
	assert.Equal(t, 1, bob.count(OutMatchEnd))
	assert.Zero(t, alice.count(OutOpponentDisconnected))
	assert.Equal(t, MatchFinished, m.State)
	require.NotNil(t, m.Result)
	assert.Equal(t, "bob", m.Result.WinnerName)
	assert.Equal(t, int64(1), e.Metrics().Settlements)
}

func TestDuel_FinishedMatchPurgedAfterRetention(t *testing.T) {
	e, s := newTestEngine(t)
	alice, bob := newPeer("alice"), newPeer("bob")
	startDuel(t, e, s, alice, bob, 1000, 1000)
	e.Dispatch(bob, msg(t, TagPlayerDeath, nil))

	st := e.Status()
	assert.Equal(t, 1, st.Matches)
	assert.Equal(t, 0, st.ActiveMatches)

	require.Equal(t, 1, s.fire(60*time.Second))
	assert.Equal(t, 0, e.Status().Matches)
}

func TestDuel_RelayOnlyWhilePlaying(t *testing.T) {
	e, s := newTestEngine(t)
	alice, bob := newPeer("alice"), newPeer("bob")
	spawn := map[string]any{"enemies": []string{"orc", "orc"}, "wave": 2}

	joinDuel(t, e, alice, 1000)
	joinDuel(t, e, bob, 1000)
	e.Dispatch(alice, msg(t, TagSpawnEnemies, spawn))
	assert.Zero(t, bob.count(OutSpawnEnemies), "ignored during countdown")

	for i := 0; i < 3; i++ {
		s.fire(time.Second)
	}
	e.Dispatch(alice, msg(t, TagSpawnEnemies, spawn))
	e.Dispatch(bob, msg(t, TagStatsUpdate, map[string]any{"hp": 40}))

	got := bob.last(t, OutSpawnEnemies)
	want, _ := json.Marshal(spawn)
	assert.JSONEq(t, string(want), string(got.Payload))
	assert.Zero(t, alice.count(OutSpawnEnemies), "never echoed to sender")
	assert.JSONEq(t, `{"hp":40}`, string(alice.last(t, OutOpponentStats).Payload))

	pb, _ := e.registry.Lookup(bob)
	assert.JSONEq(t, `{"hp":40}`, string(pb.LastStats))
}

func TestDuel_DisconnectDuringCountdown(t *testing.T) {
	e, s := newTestEngine(t)
	alice, bob := newPeer("alice"), newPeer("bob")
	joinDuel(t, e, alice, 1000)
	joinDuel(t, e, bob, 1000)
	require.Equal(t, 1, s.fire(time.Second))

	alice.closed = true
	e.HandleClose(alice)

	assert.Zero(t, bob.count(OutMatchEnd))
	assert.Zero(t, bob.count(OutOpponentDisconnected))
	pb, _ := e.registry.Lookup(bob)
	assert.Zero(t, pb.MatchID)
	assert.Equal(t, ModeNone, pb.Mode)
	assert.Empty(t, e.matches)
	assert.Zero(t, s.pending(), "countdown must be stopped")

	countdowns := bob.count(OutCountdown)
	s.fireStale()
	assert.Equal(t, countdowns, bob.count(OutCountdown), "a tick that slipped past Stop is a no-op")
	assert.Zero(t, bob.count(OutMatchStart))

	joinDuel(t, e, bob, 0)
	assert.Equal(t, 1, e.duelQ.Len(), "remaining player may queue again")
}

func TestDuel_DisconnectWhilePlayingForfeits(t *testing.T) {
	e, s := newTestEngine(t)
	alice, bob := newPeer("alice"), newPeer("bob")
	startDuel(t, e, s, alice, bob, 1000, 1200)
	bob.reset()

	alice.closed = true
	e.HandleClose(alice)

	require.Equal(t, []string{OutOpponentDisconnected, OutMatchEnd}, bob.types())
	end := decode[matchEndPayload](t, bob.last(t, OutMatchEnd))
	assert.True(t, end.Won)
	assert.Equal(t, 8, end.RatingChange)
	assert.Equal(t, reasonDisconnect, end.Reason)
	assert.Zero(t, alice.count(OutMatchEnd), "closed peers receive nothing")
	assert.Equal(t, 1, e.registry.Len())
	assert.Positive(t, e.Metrics().DroppedClosed)
}

func TestDuel_DelayedForfeit(t *testing.T) {
	e, s := newTestEngine(t, func(c *Config) { c.ForfeitDelay = 5 * time.Second })
	alice, bob := newPeer("alice"), newPeer("bob")
	startDuel(t, e, s, alice, bob, 1000, 1000)
	bob.reset()

	alice.closed = true
	e.HandleClose(alice)
	assert.Empty(t, bob.out)

	require.Equal(t, 1, s.fire(5*time.Second))
	assert.Equal(t, []string{OutOpponentDisconnected, OutMatchEnd}, bob.types())
	assert.True(t, decode[matchEndPayload](t, bob.last(t, OutMatchEnd)).Won)
}

func TestDuel_JoinWhilePairedRejected(t *testing.T) {
	e, s := newTestEngine(t)
	alice, bob, carol := newPeer("alice"), newPeer("bob"), newPeer("carol")
	startDuel(t, e, s, alice, bob, 1000, 1000)

	forged := map[string]any{"playerId": "mallory", "playerName": "Mallory", "rating": 3000}
	e.Dispatch(alice, msg(t, TagJoinQueue, forged))
	e.Dispatch(alice, msg(t, TagFindPartner, forged))
	joinDuel(t, e, carol, 1000)

	assert.Equal(t, 1, e.duelQ.Len())
	assert.Zero(t, e.coopQ.Len())
	assert.Zero(t, alice.count(OutSearching))
	assert.Equal(t, int64(2), e.Metrics().Rejected)

	pa, _ := e.registry.Lookup(alice)
	assert.NotZero(t, pa.MatchID)
	assert.Equal(t, "alice", pa.ID)
	assert.Equal(t, "alice", pa.Name)
	assert.Equal(t, 1000, pa.Rating)
	assert.Equal(t, ModeDuel, pa.Mode)

	e.Dispatch(bob, msg(t, TagPlayerDeath, nil))

	endA := decode[matchEndPayload](t, alice.last(t, OutMatchEnd))
	endB := decode[matchEndPayload](t, bob.last(t, OutMatchEnd))
	assert.True(t, endA.Won)
	assert.Equal(t, 16, endA.RatingChange)
	assert.Equal(t, 1016, endA.NewRating)
	assert.Equal(t, "alice", endB.OpponentName)
	assert.Equal(t, -16, endB.RatingChange)
}

func TestDuel_SettlementClearsMode(t *testing.T) {
	tests := []struct {
		name string
		end  func(t *testing.T, e *Engine, a, b *fakePeer)
	}{
		{name: "death", end: func(t *testing.T, e *Engine, a, b *fakePeer) {
			e.Dispatch(a, msg(t, TagPlayerDeath, nil))
		}},
		{name: "forfeit", end: func(t *testing.T, e *Engine, a, b *fakePeer) {
			a.closed = true
			e.HandleClose(a)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, s := newTestEngine(t)
			alice, bob := newPeer("alice"), newPeer("bob")
			startDuel(t, e, s, alice, bob, 1000, 1000)

			tt.end(t, e, alice, bob)

			pb, ok := e.registry.Lookup(bob)
			require.True(t, ok)
			assert.Zero(t, pb.MatchID)
			assert.Equal(t, ModeNone, pb.Mode)
		})
	}
}

func TestDuel_ZeroCountdownStartsImmediately(t *testing.T) {
	e, _ := newTestEngine(t, func(c *Config) { c.CountdownFrom = 0 })
	alice, bob := newPeer("alice"), newPeer("bob")
	joinDuel(t, e, alice, 1000)
	joinDuel(t, e, bob, 1000)

	assert.Equal(t, []string{OutMatchFound, OutMatchStart}, alice.types())
}
