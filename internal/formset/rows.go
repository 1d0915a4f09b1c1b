package formset

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mrlokans/plibrary/internal/entities"
)

// Formset prefixes
const (
	AuthorsPrefix = "authors"
	BooksPrefix   = "books"
)

var (
	AuthorFields = []string{"full_name", "birth_year", "country"}
	BookFields   = []string{"isbn", "title", "description", "year_release", "author", "publisher", "copy_count", "price"}

	AuthorDefaults = map[string]string{}
	BookDefaults   = map[string]string{"copy_count": "1"}
)

// AuthorRow is the typed form of an author row.
type AuthorRow struct {
	FullName  string `form:"full_name" validate:"required,max=100"`
	BirthYear int    `form:"birth_year" validate:"required,min=1,max=9999"`
	Country   string `form:"country" validate:"required,len=2,alpha"`
}

func (a AuthorRow) Entity() entities.Author {
	return entities.Author{
		FullName:  a.FullName,
		BirthYear: a.BirthYear,
		Country:   strings.ToUpper(a.Country),
	}
}

// BookRow is the typed form of a book row.
type BookRow struct {
	ISBN        string  `form:"isbn" validate:"required,max=13"`
	Title       string  `form:"title" validate:"required,max=128"`
	Description string  `form:"description"`
	YearRelease int     `form:"year_release" validate:"required"`
	AuthorID    uint    `form:"author" validate:"required"`
	PublisherID *uint   `form:"publisher"`
	CopyCount   int     `form:"copy_count" validate:"min=0"`
	Price       float64 `form:"price" validate:"min=0"`
}

func (b BookRow) Entity() entities.Book {
	return entities.Book{
		ISBN:        b.ISBN,
		Title:       b.Title,
		Description: b.Description,
		YearRelease: b.YearRelease,
		AuthorID:    b.AuthorID,
		PublisherID: b.PublisherID,
		CopyCount:   b.CopyCount,
		Price:       b.Price,
	}
}

// newValidate returns a validator reporting errors under form field names.
func newValidate() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs tag validation and records messages on the row,
// skipping fields that already failed to decode.
func validateStruct(v *validator.Validate, row *Row, s any) {
	err := v.Struct(s)
	if err == nil {
		return
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		row.AddError("__all__", err.Error())
		return
	}
	for _, fe := range verrs {
		if _, failed := row.Errors[fe.Field()]; failed {
			continue
		}
		row.AddError(fe.Field(), Message(fe))
	}
}

// Message renders a validation failure the way the catalog forms show it.
func Message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "len":
		return fmt.Sprintf("Ensure this value has exactly %s characters.", fe.Param())
	case "alpha":
		return "Use letters only."
	default:
		return fmt.Sprintf("Invalid value (%s).", fe.Tag())
	}
}

func parseInt(row *Row, field string) int {
	raw := row.Value(field)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		row.AddError(field, "Enter a whole number.")
		return 0
	}
	return n
}

func parseID(row *Row, field string) uint {
	raw := row.Value(field)
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		row.AddError(field, invalidChoice)
		return 0
	}
	return uint(n)
}

func parseDecimal(row *Row, field string) float64 {
	raw := row.Value(field)
	if raw == "" {
		return 0
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		row.AddError(field, "Enter a number.")
		return 0
	}
	return f
}

// DecodeAuthor converts and validates an author row.
func DecodeAuthor(v *validator.Validate, row *Row) AuthorRow {
	a := AuthorRow{
		FullName:  row.Value("full_name"),
		BirthYear: parseInt(row, "birth_year"),
		Country:   row.Value("country"),
	}
	validateStruct(v, row, a)
	return a
}

// DecodeBook converts and validates a book row. References to authors and
// publishers are checked separately.
func DecodeBook(v *validator.Validate, row *Row) BookRow {
	b := BookRow{
		ISBN:        row.Value("isbn"),
		Title:       row.Value("title"),
		Description: row.Value("description"),
		YearRelease: parseInt(row, "year_release"),
		AuthorID:    parseID(row, "author"),
		CopyCount:   1,
		Price:       parseDecimal(row, "price"),
	}
	if row.Value("copy_count") != "" {
		b.CopyCount = parseInt(row, "copy_count")
	}
	if id := parseID(row, "publisher"); id != 0 {
		b.PublisherID = &id
	}
	validateStruct(v, row, b)
	return b
}
