package save

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/nathoo/sceneweaver/world"
)

// Store keeps encoded snapshots by slot name.
type Store interface {
	Put(ctx context.Context, slot string, data []byte) error
	// Get returns ErrSlotNotFound for an empty slot.
	Get(ctx context.Context, slot string) ([]byte, error)
	Slots(ctx context.Context) ([]string, error)
	// Delete returns ErrSlotNotFound for an empty slot.
	Delete(ctx context.Context, slot string) error
	Close() error
}

// ErrInvalidSlot is returned for slot names that cannot be stored.
var ErrInvalidSlot = errors.New("invalid slot name")

var slotPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// ValidateSlot checks that a slot name is safe for every store.
func ValidateSlot(slot string) error {
	if !slotPattern.MatchString(slot) {
		return fmt.Errorf("%q: %w", slot, ErrInvalidSlot)
	}
	return nil
}

// SlotInfo describes a stored snapshot for slot listings.
type SlotInfo struct {
	Slot      string       `json:"slot"`
	Timestamp int64        `json:"timestamp"`
	MapID     string       `json:"mapId,omitempty"`
	SceneID   string       `json:"sceneId,omitempty"`
	ActorName string       `json:"actorName,omitempty"`
	Position  *world.Point `json:"position,omitempty"`
}

// Describe extracts the listing metadata of a snapshot. A document that
// cannot be parsed still yields an entry, with a zero timestamp.
func Describe(slot string, data []byte) SlotInfo {
	info := SlotInfo{Slot: slot}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return info
	}
	info.Timestamp = s.Timestamp
	info.SceneID = s.Narrative.CurrentScene
	if w := s.World; w != nil {
		info.MapID = w.CurrentMap
		info.Position = w.PlayerPosition
		if w.Player != nil {
			info.ActorName = w.Player.InitProps.Name
		}
	}
	return info
}

// ListSlots describes every slot in st, newest first.
func ListSlots(ctx context.Context, st Store) ([]SlotInfo, error) {
	slots, err := st.Slots(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing slots: %w", err)
	}

	infos := make([]SlotInfo, 0, len(slots))
	for _, slot := range slots {
		data, err := st.Get(ctx, slot)
		if err != nil {
			if errors.Is(err, ErrSlotNotFound) {
				continue
			}
			infos = append(infos, SlotInfo{Slot: slot})
			continue
		}
		infos = append(infos, Describe(slot, data))
	}
	sort.SliceStable(infos, func(i, j int) bool {
		if infos[i].Timestamp != infos[j].Timestamp {
			return infos[i].Timestamp > infos[j].Timestamp
		}
		return infos[i].Slot < infos[j].Slot
	})
	return infos, nil
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu    sync.Mutex
	slots map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: map[string][]byte{}}
}

func (m *MemoryStore) Put(_ context.Context, slot string, data []byte) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[slot] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, slot string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.slots[slot]
	if !ok {
		return nil, fmt.Errorf("%q: %w", slot, ErrSlotNotFound)
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryStore) Slots(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slots := make([]string, 0, len(m.slots))
	for s := range m.slots {
		slots = append(slots, s)
	}
	sort.Strings(slots)
	return slots, nil
}

func (m *MemoryStore) Delete(_ context.Context, slot string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.slots[slot]; !ok {
		return fmt.Errorf("%q: %w", slot, ErrSlotNotFound)
	}
	delete(m.slots, slot)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
