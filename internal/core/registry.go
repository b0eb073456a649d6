package core

import "fmt"

// Catalog holds the schemas of every importable kind. It is built once and
// read-only afterwards.
type Catalog struct {
	schemas map[Kind]Schema
	order   []Kind
}

// NewCatalog validates and indexes schemas, keeping their order.
func NewCatalog(schemas ...Schema) (*Catalog, error) {
	c := &Catalog{schemas: make(map[Kind]Schema, len(schemas))}
	for _, s := range schemas {
		if err := s.check(); err != nil {
			return nil, err
		}
		if _, exists := c.schemas[s.Kind]; exists {
			return nil, fmt.Errorf("schema already registered: %s", s.Kind)
		}
		c.schemas[s.Kind] = s
		c.order = append(c.order, s.Kind)
	}
	return c, nil
}

// Get returns the schema of a kind.
func (c *Catalog) Get(kind Kind) (Schema, bool) {
	s, ok := c.schemas[kind]
	return s, ok
}

// Kinds returns the registered kinds in registration order.
func (c *Catalog) Kinds() []Kind {
	out := make([]Kind, len(c.order))
	copy(out, c.order)
	return out
}

// All returns every schema in registration order.
func (c *Catalog) All() []Schema {
	out := make([]Schema, len(c.order))
	for i, k := range c.order {
		out[i] = c.schemas[k]
	}
	return out
}
