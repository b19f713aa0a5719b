package codec

import (
	"fmt"
	"sort"
	"sync"

	"github.com/JIMMY-KSU/modelstore/internal/version"
)

// Persistable is implemented by objects that can be stored in a payload.
//
// MarshalState must write exactly the attributes declared in the type's schema.
// UnmarshalState receives a record already upgraded to the current schema version.
type Persistable interface {
	// TypeName returns the registered type tag.
	TypeName() string

	// MarshalState writes the object's attributes into rec.
	MarshalState(rec *Record) error

	// UnmarshalState restores the object's attributes from rec.
	UnmarshalState(rec *Record) error
}

// Producer is implemented by objects that remember the upstream object they were fed by.
type Producer interface {
	Persistable

	// Upstream returns the producing object, or nil.
	Upstream() Persistable

	// SetUpstream reattaches the producing object after loading.
	SetUpstream(p Persistable)
}

// Registry maps type tags to their schemas and reconstruction strategies.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*TypeSpec
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*TypeSpec)}
}

// Default is the process-wide registry used by the public API.
var Default = NewRegistry()

// Register adds a type. Registering the same name twice is an error.
func (r *Registry) Register(spec TypeSpec) error {
	if err := spec.validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[spec.Name]; exists {
		return fmt.Errorf("type %q already registered", spec.Name)
	}
	fields := make([]FieldSpec, len(spec.Fields))
	copy(fields, spec.Fields)
	spec.Fields = fields
	migrations := make(map[int]Migration, len(spec.Migrations))
	for k, m := range spec.Migrations {
		migrations[k] = m
	}
	spec.Migrations = migrations
	r.types[spec.Name] = &spec
	return nil
}

// MustRegister is like Register but panics on error. It is meant for init functions.
func (r *Registry) MustRegister(spec TypeSpec) {
	if err := r.Register(spec); err != nil {
		panic(err)
	}
}

// Lookup returns the spec registered under name.
func (r *Registry) Lookup(name string) (*TypeSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.types[name]
	return spec, ok
}

// Types returns the registered type tags in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Serialize captures obj's declared attributes into a record at the current schema version.
// The returned record carries no upstream link; chain capture sets it separately.
func (r *Registry) Serialize(obj Persistable) (*Record, error) {
	spec, ok := r.Lookup(obj.TypeName())
	if !ok {
		return nil, &UnknownTypeError{Type: obj.TypeName()}
	}

	rec := &Record{
		Type:     spec.Name,
		Version:  spec.Version,
		Producer: version.String(),
		reg:      r,
	}
	if err := obj.MarshalState(rec); err != nil {
		return nil, fmt.Errorf("marshal %s: %w", spec.Name, err)
	}
	// MarshalState must not retarget the record.
	rec.Type, rec.Version = spec.Name, spec.Version
	if err := spec.conform(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Deserialize reconstructs an object from rec, upgrading older schema versions through
// registered migrations. rec itself is not modified. On any error no object is returned.
func (r *Registry) Deserialize(rec *Record) (Persistable, error) {
	spec, ok := r.Lookup(rec.Type)
	if !ok {
		return nil, &UnknownTypeError{Type: rec.Type}
	}
	if rec.Version > spec.Version || rec.Version < spec.MinVersion {
		return nil, &IncompatibleVersionError{
			Type:         spec.Name,
			Found:        rec.Version,
			MinSupported: spec.MinVersion,
			MaxSupported: spec.Version,
		}
	}

	work := rec.Clone()
	work.reg = r
	if err := spec.migrate(work); err != nil {
		return nil, err
	}
	if err := spec.conform(work); err != nil {
		return nil, err
	}

	obj := spec.New()
	if err := obj.UnmarshalState(work); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", spec.Name, err)
	}
	return obj, nil
}

// migrate applies the upgrade chain rec.Version -> spec.Version in sequence.
func (s *TypeSpec) migrate(rec *Record) error {
	for v := rec.Version; v < s.Version; v++ {
		step, ok := s.Migrations[v]
		if !ok {
			return &MigrationRequiredError{Type: s.Name, From: v, To: v + 1}
		}
		if err := step(rec); err != nil {
			return fmt.Errorf("migrate %s from version %d: %w", s.Name, v, err)
		}
		rec.Version = v + 1
	}
	return nil
}
