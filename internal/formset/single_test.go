package formset

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSingle_TrimsAndKeepsOnlyKnownFields(t *testing.T) {
	values := url.Values{
		"name":    {"  Jane  "},
		"contact": {"jane@example.com"},
		"other":   {"ignored"},
	}

	row := Single(FriendFields, values)

	assert.Equal(t, "Jane", row.Value("name"))
	assert.Equal(t, "jane@example.com", row.Value("contact"))
	assert.Len(t, row.Values, 2)
}

func TestForms_Publisher(t *testing.T) {
	forms := NewForms()

	row := Single(PublisherFields, url.Values{"name": {"Tor"}})
	p := forms.Publisher(row)
	assert.True(t, row.Valid())
	assert.Equal(t, "Tor", p.Entity().Name)

	row = Single(PublisherFields, url.Values{})
	forms.Publisher(row)
	assert.Equal(t, "This field is required.", row.Errors["name"])

	row = Single(PublisherFields, url.Values{"name": {strings.Repeat("x", 129)}})
	forms.Publisher(row)
	assert.Equal(t, "Ensure this value has at most 128 characters.", row.Errors["name"])
}

func TestForms_Friend(t *testing.T) {
	forms := NewForms()

	row := Single(FriendFields, url.Values{"name": {"Jane"}})
	f := forms.Friend(row)
	assert.True(t, row.Valid())
	assert.Equal(t, "Jane", f.Entity().Name)
	assert.Empty(t, f.Entity().Contact)

	row = Single(FriendFields, url.Values{"name": {"Jane"}, "contact": {strings.Repeat("c", 257)}})
	forms.Friend(row)
	assert.Contains(t, row.Errors, "contact")
}

func TestForms_Author(t *testing.T) {
	forms := NewForms()

	row := Single(AuthorFields, url.Values{"full_name": {"Ursula Le Guin"}, "birth_year": {"1929"}, "country": {"us"}})
	a := forms.Author(row)
	assert.True(t, row.Valid())
	assert.Equal(t, "US", a.Entity().Country)

	row = Single(AuthorFields, url.Values{"full_name": {"Ursula Le Guin"}, "birth_year": {"0"}, "country": {"US"}})
	forms.Author(row)
	assert.Equal(t, "This field is required.", row.Errors["birth_year"])
}
