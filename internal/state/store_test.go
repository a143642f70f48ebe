package state

import (
	"path/filepath"
	"testing"
	"time"

	"revbot/internal/core"
)

func TestStoreRoundTrip(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "state", "position.json"))

	entry := time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Symbol:         "TSLL",
		Side:           "LONG",
		EntryPrice:     10.5,
		Quantity:       100,
		EntryTime:      entry,
		Leverage:       "2",
		EntryFee:       1.05,
		Capital:        144.45,
		InitialCapital: 1200,
		ForcedClose:    "2024-03-11",
		CooldownUntil:  "2024-03-06",
		ReversalTimes:  []time.Time{entry},
	}
	if err := s.Save(snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == nil {
		t.Fatal("Load returned nil for a saved snapshot")
	}
	if got.Symbol != snap.Symbol || got.Capital != snap.Capital || got.ForcedClose != snap.ForcedClose {
		t.Fatalf("loaded %+v, want %+v", got, snap)
	}
	if !got.EntryTime.Equal(entry) {
		t.Fatalf("entry time %v, want %v", got.EntryTime, entry)
	}
}

func TestLoadMissingFile(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "missing.json"))
	got, err := s.Load()
	if err != nil || got != nil {
		t.Fatalf("Load on missing file = %v,%v, want nil,nil", got, err)
	}
}

func TestClear(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "position.json"))
	if err := s.Save(Snapshot{Capital: 100}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	got, err := s.Load()
	if err != nil || got != nil {
		t.Fatalf("Load after Clear = %v,%v, want nil,nil", got, err)
	}
}

func TestSnapshotStateConversion(t *testing.T) {
	entry := time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)
	orig := Snapshot{
		Symbol: "TSLQ", Side: "SHORT", EntryPrice: 5, Quantity: 50,
		EntryTime: entry, Leverage: "-2",
		Capital: 900, InitialCapital: 1200,
		ForcedClose: "2024-03-05", CooldownUntil: "2024-03-06",
	}
	st, err := orig.ToState()
	if err != nil {
		t.Fatalf("ToState: %v", err)
	}
	if st.Position == nil || st.Position.Side != core.Short {
		t.Fatalf("position = %+v", st.Position)
	}
	if st.ForcedClose == nil || st.ForcedClose.String() != "2024-03-05" {
		t.Fatalf("forced close = %v", st.ForcedClose)
	}

	back := FromState(st)
	if back.Symbol != orig.Symbol || back.Side != orig.Side ||
		back.ForcedClose != orig.ForcedClose || back.CooldownUntil != orig.CooldownUntil {
		t.Fatalf("round trip lost fields: %+v", back)
	}
}

func TestToStateRejectsBadDate(t *testing.T) {
	snap := Snapshot{Capital: 100, InitialCapital: 100, ForcedClose: "someday"}
	if _, err := snap.ToState(); err == nil {
		t.Fatal("malformed forced-close date must be an error")
	}
}

func TestToStateFlat(t *testing.T) {
	snap := Snapshot{Capital: 1200, InitialCapital: 1200}
	st, err := snap.ToState()
	if err != nil {
		t.Fatalf("ToState: %v", err)
	}
	if st.Position != nil {
		t.Fatal("flat snapshot must not synthesize a position")
	}
}
