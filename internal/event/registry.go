package event

// Mode is the lifetime of a registration.
type Mode int

const (
	// Persistent registrations stay until removed.
	Persistent Mode = iota
	// Once registrations are removed when they fire.
	Once
)

func (m Mode) String() string {
	switch m {
	case Persistent:
		return "persistent"
	case Once:
		return "once"
	default:
		return "unknown"
	}
}

// listenerSet holds the ordered registrations for one kind.
type listenerSet struct {
	persistent []Listener
	once       []Listener
}

func (s *listenerSet) list(mode Mode) *[]Listener {
	if mode == Once {
		return &s.once
	}
	return &s.persistent
}

func (s *listenerSet) len() int {
	return len(s.persistent) + len(s.once)
}

// Registry maps kinds to their persistent and once listeners.
// A listener is registered in at most one mode per kind.
type Registry struct {
	sets  map[Kind]*listenerSet
	count int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sets: make(map[Kind]*listenerSet)}
}

// Add registers l for kind in the given mode.
// Re-adding in the same mode is a no-op. Adding in the other mode moves the
// registration to the end of that mode's list. Returns false if nothing changed.
func (r *Registry) Add(kind Kind, l Listener, mode Mode) bool {
	set := r.sets[kind]
	if set == nil {
		set = &listenerSet{}
		r.sets[kind] = set
	}

	target := set.list(mode)
	if indexOf(*target, l) >= 0 {
		return false
	}

	other := set.list(otherMode(mode))
	if i := indexOf(*other, l); i >= 0 {
		*other = removeAt(*other, i)
		r.count--
	}

	*target = append(*target, l)
	r.count++
	return true
}

// Remove unregisters l for kind from whichever mode holds it.
// Returns false if l was not registered.
func (r *Registry) Remove(kind Kind, l Listener) bool {
	set := r.sets[kind]
	if set == nil {
		return false
	}

	for _, mode := range []Mode{Persistent, Once} {
		list := set.list(mode)
		if i := indexOf(*list, l); i >= 0 {
			*list = removeAt(*list, i)
			r.count--
			r.prune(kind, set)
			return true
		}
	}
	return false
}

// removeMode unregisters l only if it is registered for kind in mode.
func (r *Registry) removeMode(kind Kind, l Listener, mode Mode) bool {
	set := r.sets[kind]
	if set == nil {
		return false
	}
	list := set.list(mode)
	i := indexOf(*list, l)
	if i < 0 {
		return false
	}
	*list = removeAt(*list, i)
	r.count--
	r.prune(kind, set)
	return true
}

// Has reports whether l is registered for kind in either mode.
func (r *Registry) Has(kind Kind, l Listener) bool {
	set := r.sets[kind]
	if set == nil {
		return false
	}
	return indexOf(set.persistent, l) >= 0 || indexOf(set.once, l) >= 0
}

// hasMode reports whether l is registered for kind in mode.
func (r *Registry) hasMode(kind Kind, l Listener, mode Mode) bool {
	set := r.sets[kind]
	if set == nil {
		return false
	}
	return indexOf(*set.list(mode), l) >= 0
}

// Len returns the total number of registrations across all kinds and modes.
func (r *Registry) Len() int {
	return r.count
}

// KindLen returns the number of registrations for kind.
func (r *Registry) KindLen(kind Kind) int {
	if set := r.sets[kind]; set != nil {
		return set.len()
	}
	return 0
}

// Snapshot returns copies of the persistent and once lists for kind, in
// registration order. The copies are safe to iterate while the registry changes.
func (r *Registry) Snapshot(kind Kind) (persistent, once []Listener) {
	set := r.sets[kind]
	if set == nil {
		return nil, nil
	}
	return append([]Listener(nil), set.persistent...), append([]Listener(nil), set.once...)
}

// Clear removes every registration.
func (r *Registry) Clear() {
	r.sets = make(map[Kind]*listenerSet)
	r.count = 0
}

func (r *Registry) prune(kind Kind, set *listenerSet) {
	if set.len() == 0 {
		delete(r.sets, kind)
	}
}

func otherMode(m Mode) Mode {
	if m == Once {
		return Persistent
	}
	return Once
}

func indexOf(list []Listener, l Listener) int {
	for i, candidate := range list {
		if candidate == l {
			return i
		}
	}
	return -1
}

// removeAt deletes index i preserving order. The backing array is not shared
// with snapshots, so shifting in place is safe.
func removeAt(list []Listener, i int) []Listener {
	copy(list[i:], list[i+1:])
	list[len(list)-1] = nil
	return list[:len(list)-1]
}
