package formset

import (
	"fmt"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/plibrary/internal/entities"
)

const invalidChoice = "Select a valid choice. That choice is not one of the available choices."

// Store persists rows and answers reference checks for book rows.
type Store interface {
	CreateAuthor(author *entities.Author) error
	CreateBook(book *entities.Book) error
	AuthorExists(id uint) (bool, error)
	PublisherExists(id uint) (bool, error)
}

// Result carries the bound formsets back to the page and, after a
// successful submission, how many rows were written per kind.
type Result struct {
	Authors *Formset
	Books   *Formset
	Created map[string]int
}

// Valid reports whether every included formset passed validation.
func (r *Result) Valid() bool {
	if r.Authors != nil && !r.Authors.Valid() {
		return false
	}
	if r.Books != nil && !r.Books.Valid() {
		return false
	}
	return true
}

type Processor struct {
	store    Store
	validate *validator.Validate
	extra    int
	max      int
	log      logrus.FieldLogger
}

// NewProcessor builds a processor rendering extra blank rows and accepting at
// most max rows per formset.
func NewProcessor(store Store, extra, max int, log logrus.FieldLogger) *Processor {
	return &Processor{
		store:    store,
		validate: newValidate(),
		extra:    extra,
		max:      max,
		log:      log,
	}
}

// BlankAuthors returns an empty author formset for display.
func (p *Processor) BlankAuthors() *Result {
	return &Result{Authors: Blank(AuthorsPrefix, AuthorFields, AuthorDefaults, p.extra, p.max)}
}

// BlankAuthorsAndBooks returns empty author and book formsets for display.
func (p *Processor) BlankAuthorsAndBooks() *Result {
	return &Result{
		Authors: Blank(AuthorsPrefix, AuthorFields, AuthorDefaults, p.extra, p.max),
		Books:   Blank(BooksPrefix, BookFields, BookDefaults, p.extra, p.max),
	}
}

// CreateAuthors validates the authors formset and, if valid, saves every
// filled row. The returned error is reserved for storage failures.
func (p *Processor) CreateAuthors(values url.Values) (*Result, error) {
	res := &Result{Authors: Parse(AuthorsPrefix, AuthorFields, AuthorDefaults, values, p.max)}
	authors := p.bindAuthors(res.Authors)
	if !res.Valid() {
		return res, nil
	}

	res.Created = map[string]int{}
	if err := p.saveAuthors(res, authors); err != nil {
		return res, err
	}
	return res, nil
}

// CreateAuthorsAndBooks is CreateAuthors for two formsets: nothing is saved
// unless both validate.
func (p *Processor) CreateAuthorsAndBooks(values url.Values) (*Result, error) {
	res := &Result{
		Authors: Parse(AuthorsPrefix, AuthorFields, AuthorDefaults, values, p.max),
		Books:   Parse(BooksPrefix, BookFields, BookDefaults, values, p.max),
	}
	authors := p.bindAuthors(res.Authors)
	books, err := p.bindBooks(res.Books)
	if err != nil {
		return res, err
	}
	if !res.Valid() {
		return res, nil
	}

	res.Created = map[string]int{}
	if err := p.saveAuthors(res, authors); err != nil {
		return res, err
	}
	for _, b := range books {
		book := b.Entity()
		if err := p.store.CreateBook(&book); err != nil {
			return res, fmt.Errorf("failed to create book %q: %w", book.Title, err)
		}
		res.Created[BooksPrefix]++
	}
	return res, nil
}

func (p *Processor) bindAuthors(fs *Formset) []AuthorRow {
	var rows []AuthorRow
	for _, row := range fs.Filled() {
		rows = append(rows, DecodeAuthor(p.validate, row))
	}
	return rows
}

func (p *Processor) bindBooks(fs *Formset) ([]BookRow, error) {
	var rows []BookRow
	for _, row := range fs.Filled() {
		b := DecodeBook(p.validate, row)
		if err := p.checkReferences(row, b); err != nil {
			return nil, err
		}
		rows = append(rows, b)
	}
	return rows, nil
}

func (p *Processor) checkReferences(row *Row, b BookRow) error {
	if b.AuthorID != 0 {
		ok, err := p.store.AuthorExists(b.AuthorID)
		if err != nil {
			return fmt.Errorf("failed to check author %d: %w", b.AuthorID, err)
		}
		if !ok {
			row.AddError("author", invalidChoice)
		}
	}
	if b.PublisherID != nil {
		ok, err := p.store.PublisherExists(*b.PublisherID)
		if err != nil {
			return fmt.Errorf("failed to check publisher %d: %w", *b.PublisherID, err)
		}
		if !ok {
			row.AddError("publisher", invalidChoice)
		}
	}
	return nil
}

func (p *Processor) saveAuthors(res *Result, rows []AuthorRow) error {
	for _, a := range rows {
		author := a.Entity()
		if err := p.store.CreateAuthor(&author); err != nil {
			return fmt.Errorf("failed to create author %q: %w", author.FullName, err)
		}
		res.Created[AuthorsPrefix]++
	}
	p.log.WithField("authors", res.Created[AuthorsPrefix]).Debug("Bulk authors saved")
	return nil
}
