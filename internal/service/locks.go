// Пакет service — бизнес-логика Contract Module.
// locks.go — взаимное исключение per reservation.
// Два одновременных подписания одной резервации гонялись бы на
// файловой системе и на строке контракта; блокировка по ключу
// резервации сериализует их. Разные резервации не мешают друг другу.
package service

import "sync"

// lockEntry — мьютекс резервации со счётчиком держателей
// и ожидающих.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// keyedMutex — набор мьютексов, адресуемых ключом резервации.
// Запись удаляется, когда последний держатель отпускает блокировку:
// карта не растёт с числом когда-либо подписанных резерваций.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[int64]*lockEntry
}

// Lock захватывает мьютекс резервации и возвращает функцию отпускания.
func (k *keyedMutex) Lock(reservationID int64) func() {
	k.mu.Lock()
	if k.entries == nil {
		k.entries = make(map[int64]*lockEntry)
	}
	e, ok := k.entries[reservationID]
	if !ok {
		e = &lockEntry{}
		k.entries[reservationID] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.entries, reservationID)
		}
		k.mu.Unlock()
	}
}
