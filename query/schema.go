package query

import "sort"

// Type is the portable field type vocabulary schema descriptors use.
type Type string

const (
	TypeID      Type = "id"
	TypeInt     Type = "integer"
	TypeFloat   Type = "float"
	TypeDecimal Type = "decimal"
	TypeBool    Type = "boolean"
	TypeString  Type = "string"
	TypeBytes   Type = "binary"
	TypeUUID    Type = "uuid"
	TypeTime    Type = "datetime"
	TypeJSON    Type = "json"
	TypeAny     Type = "any"
)

// AssocKind classifies association reflections.
type AssocKind string

const (
	HasMany   AssocKind = "has_many"
	HasOne    AssocKind = "has_one"
	BelongsTo AssocKind = "belongs_to"
)

// Association is one association reflection of a schema. OwnerKey is the
// field on the owning schema, RelatedKey the field on the target schema, and
// Target the registry key of the target schema.
type Association struct {
	Kind       AssocKind
	OwnerKey   string
	RelatedKey string
	Target     string
}

// Schema is a plain immutable descriptor of a mapped table: field types,
// primary key and association reflections. Descriptors are built once at
// startup and are safe for unsynchronized concurrent reads; the planner only
// ever reads them.
type Schema struct {
	Name         string
	Source       string // physical table name; empty derives one from Name
	Fields       map[string]Type
	PrimaryKey   string
	Associations map[string]Association
}

// FieldNames returns the schema's field names in deterministic (sorted)
// order.
func (s *Schema) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolver is the schema metadata lookup the planner consumes. All lookups
// report existence explicitly; the planner turns misses into plan errors.
type Resolver interface {
	// Source returns the physical table of a schema.
	Source(schema string) (string, bool)
	// FieldType returns the declared type of a field.
	FieldType(schema, field string) (Type, bool)
	// Association returns an association reflection by name.
	Association(schema, name string) (Association, bool)
	// PrimaryKey returns the schema's primary key field.
	PrimaryKey(schema string) (string, bool)
	// Fields returns all field names of a schema in deterministic order.
	Fields(schema string) ([]string, bool)
}

// Registry is a map from schema name to descriptor, populated once at
// registration time. It replaces compile-time reflection with plain data:
// read-only after construction, safe for concurrent use.
type Registry struct {
	schemas map[string]*Schema
}

// NewRegistry builds a registry from descriptors. Duplicate names keep the
// last descriptor. A descriptor with an empty Source gets one derived from
// its name via DefaultSource.
func NewRegistry(schemas ...*Schema) *Registry {
	r := &Registry{schemas: make(map[string]*Schema, len(schemas))}
	for _, s := range schemas {
		if s.Source == "" {
			derived := *s
			derived.Source = DefaultSource(s.Name)
			s = &derived
		}
		r.schemas[s.Name] = s
	}
	return r
}

// Schema returns a descriptor by name.
func (r *Registry) Schema(name string) (*Schema, bool) {
	s, ok := r.schemas[name]
	return s, ok
}

// Source implements Resolver.
func (r *Registry) Source(schema string) (string, bool) {
	s, ok := r.schemas[schema]
	if !ok {
		return "", false
	}
	return s.Source, true
}

// FieldType implements Resolver.
func (r *Registry) FieldType(schema, field string) (Type, bool) {
	s, ok := r.schemas[schema]
	if !ok {
		return "", false
	}
	t, ok := s.Fields[field]
	return t, ok
}

// Association implements Resolver.
func (r *Registry) Association(schema, name string) (Association, bool) {
	s, ok := r.schemas[schema]
	if !ok {
		return Association{}, false
	}
	a, ok := s.Associations[name]
	return a, ok
}

// PrimaryKey implements Resolver.
func (r *Registry) PrimaryKey(schema string) (string, bool) {
	s, ok := r.schemas[schema]
	if !ok || s.PrimaryKey == "" {
		return "", false
	}
	return s.PrimaryKey, true
}

// Fields implements Resolver.
func (r *Registry) Fields(schema string) ([]string, bool) {
	s, ok := r.schemas[schema]
	if !ok {
		return nil, false
	}
	return s.FieldNames(), true
}

var _ Resolver = (*Registry)(nil)
