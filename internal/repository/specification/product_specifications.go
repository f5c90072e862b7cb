package specification

import (
	"strings"

	"gorm.io/gorm"
)

type ProductByStatus struct {
	Status string
}

func (s ProductByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}

type ProductCategoryIn struct {
	Categories []string
}

func (s ProductCategoryIn) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("category IN ?", s.Categories)
}

// TextMatch is one case and accent insensitive substring condition on a text
// column. Matching relies on the unaccent extension.
type TextMatch struct {
	Field string
	Term  string
}

// productTextFields whitelists the columns a TextMatch may reference, since
// the field name is interpolated into SQL.
var productTextFields = map[string]bool{
	"name":        true,
	"description": true,
}

// ProductTextMatchAny ORs its matches together and ANDs the group with the
// rest of the query.
type ProductTextMatchAny struct {
	Matches []TextMatch
}

func (s ProductTextMatchAny) Apply(db *gorm.DB) *gorm.DB {
	clauses := make([]string, 0, len(s.Matches))
	args := make([]interface{}, 0, len(s.Matches))
	for _, m := range s.Matches {
		if !productTextFields[m.Field] {
			continue
		}
		clauses = append(clauses, "unaccent("+m.Field+") ILIKE unaccent(?)")
		args = append(args, "%"+m.Term+"%")
	}
	if len(clauses) == 0 {
		return db
	}
	return db.Where("("+strings.Join(clauses, " OR ")+")", args...)
}
