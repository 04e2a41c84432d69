package directory

import (
	"context"
	"sort"
	"sync"
)

// Memory es un directorio en proceso (dev y tests). Es seguro para uso concurrente.
type Memory struct {
	mu      sync.Mutex
	entries map[string]Entry
	calls   map[string]int

	// Fault, si no es nil, se consulta antes de cada operación; un error no-nil
	// se devuelve sin tocar el estado.
	Fault func(op, address string) error
}

func NewMemory(seed ...Entry) *Memory {
	m := &Memory{entries: make(map[string]Entry), calls: make(map[string]int)}
	for _, e := range seed {
		m.entries[e.Address] = e
	}
	return m
}

func (m *Memory) fault(op, address string) error {
	m.mu.Lock()
	m.calls[op]++
	f := m.Fault
	m.mu.Unlock()
	if f != nil {
		return f(op, address)
	}
	return nil
}

func (m *Memory) List(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.fault("list", ""); err != nil {
		return nil, err
	}
	return m.Snapshot(), nil
}

func (m *Memory) Authorize(ctx context.Context, address, name, description string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.fault("authorize", address); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[address] = Entry{Address: address, Name: name, Description: description, Authorized: true}
	return nil
}

func (m *Memory) Deauthorize(ctx context.Context, address string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.fault("deauthorize", address); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[address]; ok {
		e.Authorized = false
		m.entries[address] = e
	}
	return nil
}

// Ping siempre responde.
func (m *Memory) Ping(context.Context) error { return nil }

// Snapshot devuelve las entradas ordenadas por dirección.
func (m *Memory) Snapshot() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// Calls devuelve cuántas veces se invocó op ("list", "authorize", "deauthorize").
// Con op vacío devuelve el total.
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if op != "" {
		return m.calls[op]
	}
	n := 0
	for _, c := range m.calls {
		n += c
	}
	return n
}
