// Package kinds declares the schemas of the four importable entity kinds.
// Import it where a Catalog is needed:
//
//	svc := core.NewService(core.ServiceConfig{
//	    Store:   store,
//	    Catalog: kinds.DefaultCatalog(),
//	})
package kinds

import "github.com/JonMunkholm/roster/internal/core"

// DefaultCatalog returns a catalog with members, payments, attendance and
// classes, in that order. It panics if a declaration is inconsistent.
func DefaultCatalog() *core.Catalog {
	c, err := core.NewCatalog(Members(), Payments(), Attendance(), Classes())
	if err != nil {
		panic("kinds: " + err.Error())
	}
	return c
}

// idField is the optional primary key every kind carries. Missing ids are
// generated at commit time.
func idField() core.FieldSpec {
	return core.FieldSpec{
		Name:    "id",
		Label:   "ID",
		Aliases: []string{"identifiant", "uuid"},
		Type:    core.FieldText,
	}
}

func notesField() core.FieldSpec {
	return core.FieldSpec{
		Name:    "notes",
		Label:   "Notes",
		Aliases: []string{"remarques", "commentaires", "comments"},
		Type:    core.FieldText,
	}
}
