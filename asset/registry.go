package asset

// MaxAssets bounds the registry. The cap is small enough that linear lookup
// beats any indexing structure.
const MaxAssets = 8

// State is the per-widget runtime cache of what was last pushed to the
// renderer, used to suppress redundant pushes. The Handle is owned by the
// renderer collaborator; the core never interprets it.
type State struct {
	LastPercent int // -1 means unset
	LastText    string
	TextValid   bool
	Handle      any
}

// Reset invalidates the push caches so the next refresh forwards everything.
func (s *State) Reset() {
	s.LastPercent = -1
	s.LastText = ""
	s.TextValid = false
}

// Entry pairs a descriptor with its runtime state.
type Entry struct {
	Desc  Descriptor
	State State
}

// Registry is the ordered, bounded collection of tracked widgets keyed by id.
// Owned by the single loop goroutine; no locking.
type Registry struct {
	entries []Entry
}

// Len returns the number of tracked widgets.
func (r *Registry) Len() int {
	return len(r.entries)
}

// At returns the i-th entry in creation order, or nil when out of range.
func (r *Registry) At(i int) *Entry {
	if i < 0 || i >= len(r.entries) {
		return nil
	}
	return &r.entries[i]
}

// Find returns the entry tracked under id, or nil.
func (r *Registry) Find(id int) *Entry {
	for i := range r.entries {
		if r.entries[i].Desc.ID == id {
			return &r.entries[i]
		}
	}
	return nil
}

// Add tracks a descriptor. It returns nil when the registry is full or the id
// is already tracked (no two entries may share an id).
func (r *Registry) Add(desc Descriptor) *Entry {
	if len(r.entries) >= MaxAssets || r.Find(desc.ID) != nil {
		return nil
	}
	e := Entry{Desc: desc}
	e.State.Reset()
	r.entries = append(r.entries, e)
	return &r.entries[len(r.entries)-1]
}

// AddPlaceholder tracks a disabled default descriptor for an id first seen in
// a wire delta. Updates beyond capacity are the caller's to drop.
func (r *Registry) AddPlaceholder(id int) *Entry {
	desc := Default(id)
	desc.Enabled = false
	return r.Add(desc)
}

// Clear drops every entry; visuals must already be destroyed by the caller.
func (r *Registry) Clear() {
	r.entries = r.entries[:0]
}
