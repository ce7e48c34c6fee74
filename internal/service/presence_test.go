package service

import (
	"log/slog"
	"testing"
	"time"

	"ecodesk/internal/repository"

	"github.com/stretchr/testify/require"
)

func newPresenceService(t *testing.T) (*PresenceService, func(time.Time)) {
	t.Helper()
	db := newTestDB(t)
	svc := NewPresenceService(repository.NewPresenceRepository(db), 2*time.Minute, slog.Default())
	setNow := func(at time.Time) {
		svc.now = func() time.Time { return at }
	}
	return svc, setNow
}

func TestPresence_UnknownStaffNeverSeen(t *testing.T) {
	svc, _ := newPresenceService(t)

	status := svc.Status(42)
	require.False(t, status.IsOnline)
	require.Nil(t, status.LastSeen)
	require.Equal(t, "never seen", status.Label)
	require.False(t, svc.RecentlyActive(42))
}

func TestPresence_SetOnlineIsIdempotentUpsert(t *testing.T) {
	svc, setNow := newPresenceService(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	setNow(base)
	svc.SetOnline(7, true)
	svc.SetOnline(7, true)

	status := svc.Status(7)
	require.True(t, status.IsOnline)
	require.Equal(t, "online", status.Label)
	require.True(t, svc.RecentlyActive(7))

	// disconnect refreshes last_seen to disconnect time
	setNow(base.Add(10 * time.Minute))
	svc.SetOnline(7, false)
	status = svc.Status(7)
	require.False(t, status.IsOnline)
	require.NotNil(t, status.LastSeen)
	require.Equal(t, base.Add(10*time.Minute).Unix(), status.LastSeen.Unix())
}

func TestPresence_DerivedLabels(t *testing.T) {
	svc, setNow := newPresenceService(t)
	seen := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	setNow(seen)
	svc.SetOnline(7, false)

	cases := []struct {
		elapsed time.Duration
		label   string
	}{
		{30 * time.Second, "just now"},
		{5 * time.Minute, "5 minutes ago"},
		{3 * time.Hour, "3 hours ago"},
		{49 * time.Hour, "2 days ago"},
	}
	for _, tc := range cases {
		setNow(seen.Add(tc.elapsed))
		require.Equal(t, tc.label, svc.Status(7).Label)
	}
}

func TestPresence_RecentlyActiveWindow(t *testing.T) {
	svc, setNow := newPresenceService(t)
	seen := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	setNow(seen)
	svc.SetOnline(7, false)

	setNow(seen.Add(90 * time.Second))
	require.True(t, svc.RecentlyActive(7))

	setNow(seen.Add(3 * time.Minute))
	require.False(t, svc.RecentlyActive(7))
}

func TestPresence_HeartbeatKeepsOnlineFlag(t *testing.T) {
	svc, setNow := newPresenceService(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	setNow(base)
	svc.SetOnline(7, false)

	setNow(base.Add(time.Hour))
	svc.Heartbeat(7)

	status := svc.Status(7)
	require.False(t, status.IsOnline)
	require.Equal(t, base.Add(time.Hour).Unix(), status.LastSeen.Unix())
	require.Equal(t, "just now", status.Label)
}
