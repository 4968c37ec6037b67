package routing

import (
	"time"

	"github.com/kafkaflow/asyncproc/event"
)

// interceptingStore wraps a real Store for the duration of one event's
// PROCESSING: Put/Delete are appended to the event's pending writes instead
// of touching the real store; Get reads the real store directly, first
// consulting the event's scratch overlay if read-your-writes is enabled
// for this event.
type interceptingStore[K comparable] struct {
	ev    *event.AsyncEvent[K]
	store string
	real  Store
}

func (s *interceptingStore[K]) Get(key []byte) ([]byte, error) {
	if v, tomb, found := s.ev.ScratchGet(s.store, key); found {
		if tomb {
			return nil, nil
		}
		return v, nil
	}
	return s.real.Get(key)
}

func (s *interceptingStore[K]) Put(key, value []byte) error {
	return s.ev.AppendWrite(event.WriteAction{
		Store:     s.store,
		Key:       key,
		Value:     value,
		Timestamp: time.UnixMilli(s.ev.SystemTimeAtMs),
	})
}

func (s *interceptingStore[K]) Delete(key []byte) error {
	return s.ev.AppendWrite(event.WriteAction{
		Store:     s.store,
		Key:       key,
		Tombstone: true,
		Timestamp: time.UnixMilli(s.ev.SystemTimeAtMs),
	})
}

// Range is never intercepted and never consults the scratch overlay: a
// ranging read during PROCESSING observes only the real store's state.
func (s *interceptingStore[K]) Range(start, end []byte) (Iterator, error) {
	return s.real.Range(start, end)
}
