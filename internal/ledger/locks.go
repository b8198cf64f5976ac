package ledger

import (
	"sort"
	"sync"
	"time"

	"hastane-stok-backend/internal/models"
)

// lockTable: malzeme başına tek yazar garantisi. Kanal tabanlı kilit, bekleme
// süresinin sınırlandırılabilmesi için; süre dolarsa ErrBusy döner, asla
// süresiz bloklanmaz.
type lockTable struct {
	mu    sync.Mutex
	locks map[uint]chan struct{}
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[uint]chan struct{})}
}

func (t *lockTable) get(id uint) chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch, ok := t.locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		t.locks[id] = ch
	}
	return ch
}

// acquire: kilidi en fazla timeout kadar bekler.
func (t *lockTable) acquire(id uint, timeout time.Duration) error {
	ch := t.get(id)
	select {
	case ch <- struct{}{}:
		return nil
	default:
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case ch <- struct{}{}:
		return nil
	case <-timer.C:
		return models.ErrBusy
	}
}

func (t *lockTable) release(id uint) {
	<-t.get(id)
}

// acquireAll: kilitleri her zaman artan ID sırasıyla alır, böylece iki
// finalize birbirini kilitleyemez. Biri alınamazsa alınanlar geri bırakılır.
func (t *lockTable) acquireAll(ids []uint, timeout time.Duration) error {
	sorted := make([]uint, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	acquired := make([]uint, 0, len(sorted))
	for _, id := range sorted {
		if err := t.acquire(id, timeout); err != nil {
			for _, a := range acquired {
				t.release(a)
			}
			return err
		}
		acquired = append(acquired, id)
	}
	return nil
}

func (t *lockTable) releaseAll(ids []uint) {
	for _, id := range ids {
		t.release(id)
	}
}
