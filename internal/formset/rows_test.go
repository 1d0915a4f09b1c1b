package formset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRow(values map[string]string) *Row {
	return &Row{Values: values}
}

func TestDecodeAuthor(t *testing.T) {
	v := newValidate()

	tests := []struct {
		name     string
		values   map[string]string
		errField string
		errMsg   string
	}{
		{
			name:   "valid",
			values: map[string]string{"full_name": "Stanislaw Lem", "birth_year": "1921", "country": "pl"},
		},
		{
			name:     "missing name",
			values:   map[string]string{"birth_year": "1921", "country": "PL"},
			errField: "full_name",
			errMsg:   "This field is required.",
		},
		{
			name:     "year not a number",
			values:   map[string]string{"full_name": "Lem", "birth_year": "nineteen", "country": "PL"},
			errField: "birth_year",
			errMsg:   "Enter a whole number.",
		},
		{
			name:     "country too long",
			values:   map[string]string{"full_name": "Lem", "birth_year": "1921", "country": "POL"},
			errField: "country",
			errMsg:   "Ensure this value has exactly 2 characters.",
		},
		{
			name:     "country digits",
			values:   map[string]string{"full_name": "Lem", "birth_year": "1921", "country": "P1"},
			errField: "country",
			errMsg:   "Use letters only.",
		},
		{
			name:     "year out of range",
			values:   map[string]string{"full_name": "Lem", "birth_year": "10000", "country": "PL"},
			errField: "birth_year",
			errMsg:   "Ensure this value is less than or equal to 9999.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := newRow(tt.values)
			author := DecodeAuthor(v, row)

			if tt.errField == "" {
				assert.True(t, row.Valid(), "unexpected errors: %v", row.Errors)
				entity := author.Entity()
				assert.Equal(t, "PL", entity.Country)
				assert.Equal(t, 1921, entity.BirthYear)
				return
			}
			assert.Equal(t, tt.errMsg, row.Errors[tt.errField])
		})
	}
}

func TestDecodeBook(t *testing.T) {
	v := newValidate()

	t.Run("valid with defaults", func(t *testing.T) {
		row := newRow(map[string]string{"isbn": "9780156027601", "title": "Solaris", "year_release": "1961", "author": "3"})
		book := DecodeBook(v, row)

		require.True(t, row.Valid(), "unexpected errors: %v", row.Errors)
		assert.Equal(t, uint(3), book.AuthorID)
		assert.Nil(t, book.PublisherID)
		assert.Equal(t, 1, book.CopyCount)
		assert.Equal(t, 0.0, book.Price)
	})

	t.Run("publisher and price", func(t *testing.T) {
		row := newRow(map[string]string{"isbn": "1", "title": "Solaris", "year_release": "1961", "author": "3", "publisher": "4", "copy_count": "0", "price": "12.50"})
		book := DecodeBook(v, row)

		require.True(t, row.Valid(), "unexpected errors: %v", row.Errors)
		require.NotNil(t, book.PublisherID)
		assert.Equal(t, uint(4), *book.PublisherID)
		assert.Equal(t, 0, book.CopyCount)
		assert.Equal(t, 12.5, book.Entity().Price)
	})

	t.Run("field errors", func(t *testing.T) {
		row := newRow(map[string]string{"isbn": "12345678901234", "title": "", "year_release": "1961", "author": "abc", "copy_count": "-1", "price": "cheap"})
		DecodeBook(v, row)

		assert.Equal(t, "Ensure this value has at most 13 characters.", row.Errors["isbn"])
		assert.Equal(t, "This field is required.", row.Errors["title"])
		assert.Equal(t, invalidChoice, row.Errors["author"])
		assert.Equal(t, "Ensure this value is greater than or equal to 0.", row.Errors["copy_count"])
		assert.Equal(t, "Enter a number.", row.Errors["price"])
	})
}
