package formset

import (
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mrlokans/plibrary/internal/entities"
)

var (
	PublisherFields = []string{"name"}
	FriendFields    = []string{"name", "contact"}
)

type PublisherRow struct {
	Name string `form:"name" validate:"required,max=128"`
}

func (p PublisherRow) Entity() entities.Publisher {
	return entities.Publisher{Name: p.Name}
}

type FriendRow struct {
	Name    string `form:"name" validate:"required,max=128"`
	Contact string `form:"contact" validate:"max=256"`
}

func (f FriendRow) Entity() entities.Friend {
	return entities.Friend{Name: f.Name, Contact: f.Contact}
}

// Single binds an unprefixed create form into a row.
func Single(fields []string, values url.Values) *Row {
	row := &Row{Values: make(map[string]string, len(fields))}
	for _, field := range fields {
		row.Values[field] = strings.TrimSpace(values.Get(field))
	}
	return row
}

// Forms validates the single-object create pages with the same rules and
// messages as the bulk rows.
type Forms struct {
	validate *validator.Validate
}

func NewForms() *Forms {
	return &Forms{validate: newValidate()}
}

func (f *Forms) Author(row *Row) AuthorRow {
	return DecodeAuthor(f.validate, row)
}

func (f *Forms) Publisher(row *Row) PublisherRow {
	p := PublisherRow{Name: row.Value("name")}
	validateStruct(f.validate, row, p)
	return p
}

func (f *Forms) Friend(row *Row) FriendRow {
	fr := FriendRow{Name: row.Value("name"), Contact: row.Value("contact")}
	validateStruct(f.validate, row, fr)
	return fr
}
