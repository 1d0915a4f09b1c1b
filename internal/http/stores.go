package http

import (
	"net/url"

	"github.com/mrlokans/plibrary/internal/entities"
	"github.com/mrlokans/plibrary/internal/formset"
	"github.com/mrlokans/plibrary/internal/profile"
)

// This file consolidates the interfaces HTTP controllers depend on.
// Each controller takes only what it uses.

// BookLister provides read access to the catalog books.
type BookLister interface {
	ListBooks() ([]entities.Book, error)
}

// CatalogStore backs the list and single-object create pages.
type CatalogStore interface {
	BookLister
	ListLentBooks() ([]entities.Book, error)

	ListAuthors() ([]entities.Author, error)
	CreateAuthor(author *entities.Author) error

	ListPublishers() ([]entities.Publisher, error)
	CreatePublisher(publisher *entities.Publisher) error
	PublisherNameTaken(name string) (bool, error)

	ListFriends() ([]entities.Friend, error)
	CreateFriend(friend *entities.Friend) error
}

// Ledger changes copy counts and lending state.
type Ledger interface {
	Increment(userID, bookID uint) (*entities.Book, error)
	Decrement(userID, bookID uint) (*entities.Book, error)
	LendOrReturn(userID, bookID uint, friendID *uint) (*entities.Book, error)
}

// BulkCreator handles the bulk entry formsets.
type BulkCreator interface {
	BlankAuthors() *formset.Result
	BlankAuthorsAndBooks() *formset.Result
	CreateAuthors(values url.Values) (*formset.Result, error)
	CreateAuthorsAndBooks(values url.Values) (*formset.Result, error)
}

// ProfileService derives page context and stores profile submissions.
type ProfileService interface {
	Context(user *entities.User) profile.Enrichment
	CreateProfile(user *entities.User, age int) (*entities.UserProfile, error)
}

// CatalogRecorder writes audit entries for catalog and profile changes.
type CatalogRecorder interface {
	LogBulkCreate(userID uint, action string, counts map[string]int, err error)
	LogProfile(userID uint, description string, err error)
}

// BulkObserver counts rows created by bulk submissions.
type BulkObserver interface {
	RecordBulkCreated(kind string, rows int)
}

// AuditReader pages through stored audit events.
type AuditReader interface {
	GetEvents(userID uint, limit, offset int) ([]entities.AuditEvent, int64, error)
	GetEventsByType(eventType entities.AuditEventType, userID uint, limit, offset int) ([]entities.AuditEvent, int64, error)
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping() error
}
