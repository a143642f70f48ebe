package state

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	json "github.com/bytedance/sonic"

	"revbot/internal/calendar"
	"revbot/internal/core"
)

// Snapshot is the on-disk position state. Dates are stored as plain
// "2006-01-02" strings so a snapshot survives timezone config changes.
type Snapshot struct {
	Symbol         string      `json:"symbol,omitempty"`
	Side           string      `json:"side,omitempty"`
	EntryPrice     float64     `json:"entry_price,omitempty"`
	Quantity       float64     `json:"quantity,omitempty"`
	EntryTime      time.Time   `json:"entry_time,omitempty"`
	Leverage       string      `json:"leverage,omitempty"`
	EntryFee       float64     `json:"entry_fee,omitempty"`
	Capital        float64     `json:"capital"`
	InitialCapital float64     `json:"initial_capital"`
	ForcedClose    string      `json:"forced_close,omitempty"`
	CooldownUntil  string      `json:"cooldown_until,omitempty"`
	ReversalTimes  []time.Time `json:"reversal_times,omitempty"`
}

// FromState converts the strategy's ledger into a Snapshot.
func FromState(st core.State) Snapshot {
	snap := Snapshot{
		Capital:        st.Capital,
		InitialCapital: st.InitialCapital,
		ReversalTimes:  st.ReversalTimes,
	}
	if p := st.Position; p != nil {
		snap.Symbol = p.Symbol
		snap.Side = p.Side.String()
		snap.EntryPrice = p.EntryPrice
		snap.Quantity = p.Quantity
		snap.EntryTime = p.EntryTime
		snap.Leverage = p.Leverage
		snap.EntryFee = p.EntryFee
	}
	if st.ForcedClose != nil {
		snap.ForcedClose = st.ForcedClose.String()
	}
	if st.CooldownUntil != nil {
		snap.CooldownUntil = st.CooldownUntil.String()
	}
	return snap
}

// ToState rebuilds the strategy ledger. Malformed dates are an error rather
// than a silently dropped deadline.
func (s Snapshot) ToState() (core.State, error) {
	st := core.State{
		Capital:        s.Capital,
		InitialCapital: s.InitialCapital,
		ReversalTimes:  s.ReversalTimes,
	}
	if s.Symbol != "" {
		side := core.Flat
		switch s.Side {
		case "LONG":
			side = core.Long
		case "SHORT":
			side = core.Short
		default:
			return core.State{}, errors.New("snapshot: unknown side " + s.Side)
		}
		st.Position = &core.Position{
			Symbol:     s.Symbol,
			Side:       side,
			EntryPrice: s.EntryPrice,
			Quantity:   s.Quantity,
			EntryTime:  s.EntryTime,
			Leverage:   s.Leverage,
			EntryFee:   s.EntryFee,
		}
	}
	if s.ForcedClose != "" {
		d, err := calendar.ParseDay(s.ForcedClose)
		if err != nil {
			return core.State{}, err
		}
		st.ForcedClose = &d
	}
	if s.CooldownUntil != "" {
		d, err := calendar.ParseDay(s.CooldownUntil)
		if err != nil {
			return core.State{}, err
		}
		st.CooldownUntil = &d
	}
	return st, nil
}

// Store persists Snapshots to one file, safe for concurrent callers.
type Store struct {
	path string
	mu   sync.Mutex
}

func New(path string) *Store {
	return &Store{path: path}
}

// Load returns the saved snapshot, or (nil, nil) when none exists.
func (s *Store) Load() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		return nil, errors.New("empty state path")
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *Store) Save(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		return errors.New("empty state path")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0o644)
}

// Clear truncates the snapshot file, used after a clean final close.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		return errors.New("empty state path")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path, []byte{}, 0o644)
}
