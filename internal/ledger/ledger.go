// Package ledger tracks how many copies of each book are owned and which
// friend currently holds a book.
//
// Operations are plain read-modify-write against the store with no locking,
// so concurrent changes to the same book resolve as last write wins.
package ledger

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/mrlokans/plibrary/internal/entities"
	"github.com/mrlokans/plibrary/internal/metrics"
)

var (
	ErrBookNotFound   = errors.New("book not found")
	ErrFriendNotFound = errors.New("friend not found")
)

// Operation names used for audit actions and metric labels.
const (
	OpIncrement = "increment"
	OpDecrement = "decrement"
	OpLend      = "lend"
	OpReturn    = "return"
)

// Store is the persistence the ledger needs. Lookups of absent rows must
// return an error wrapping gorm.ErrRecordNotFound.
type Store interface {
	GetBookByID(id uint) (*entities.Book, error)
	GetFriendByID(id uint) (*entities.Friend, error)
	SaveBook(book *entities.Book) error
}

// Recorder receives an entry for every applied change.
type Recorder interface {
	LogLedger(userID uint, action string, bookID uint, description string)
}

// Observer counts operation outcomes.
type Observer interface {
	RecordLedgerOperation(operation, result string)
}

type Service struct {
	store    Store
	recorder Recorder
	observer Observer
	log      logrus.FieldLogger
}

// NewService builds a ledger. recorder and observer may be nil.
func NewService(store Store, recorder Recorder, observer Observer, log logrus.FieldLogger) *Service {
	return &Service{
		store:    store,
		recorder: recorder,
		observer: observer,
		log:      log,
	}
}

// Increment adds one owned copy.
func (s *Service) Increment(userID, bookID uint) (*entities.Book, error) {
	book, err := s.loadBook(OpIncrement, bookID)
	if err != nil {
		return nil, err
	}

	book.CopyCount++

	if err := s.save(OpIncrement, book); err != nil {
		return nil, err
	}
	s.applied(userID, OpIncrement, "copy_increment", book, fmt.Sprintf("Copies of %q now %d", book.Title, book.CopyCount))
	return book, nil
}

// Decrement removes one owned copy. The count never drops below zero; a
// book already at zero is saved unchanged.
func (s *Service) Decrement(userID, bookID uint) (*entities.Book, error) {
	book, err := s.loadBook(OpDecrement, bookID)
	if err != nil {
		return nil, err
	}

	if book.CopyCount < 1 {
		book.CopyCount = 0
	} else {
		book.CopyCount--
	}

	if err := s.save(OpDecrement, book); err != nil {
		return nil, err
	}
	s.applied(userID, OpDecrement, "copy_decrement", book, fmt.Sprintf("Copies of %q now %d", book.Title, book.CopyCount))
	return book, nil
}

// Lend records the friend as the holder of the book. An unknown friend
// leaves the book untouched.
func (s *Service) Lend(userID, bookID, friendID uint) (*entities.Book, error) {
	book, err := s.loadBook(OpLend, bookID)
	if err != nil {
		return nil, err
	}

	friend, err := s.store.GetFriendByID(friendID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.notFound(OpLend, "friend_id", friendID)
			return nil, ErrFriendNotFound
		}
		s.failed(OpLend)
		return nil, fmt.Errorf("failed to load friend %d: %w", friendID, err)
	}

	book.LendedToID = &friend.ID
	book.LendedTo = friend

	if err := s.save(OpLend, book); err != nil {
		return nil, err
	}
	s.applied(userID, OpLend, "book_lend", book, fmt.Sprintf("Lent %q to %s", book.Title, friend.Name))
	return book, nil
}

// Return marks the book as back home.
func (s *Service) Return(userID, bookID uint) (*entities.Book, error) {
	book, err := s.loadBook(OpReturn, bookID)
	if err != nil {
		return nil, err
	}

	book.LendedToID = nil
	book.LendedTo = nil

	if err := s.save(OpReturn, book); err != nil {
		return nil, err
	}
	s.applied(userID, OpReturn, "book_return", book, fmt.Sprintf("Returned %q", book.Title))
	return book, nil
}

// LendOrReturn lends the book when a friend is given and returns it otherwise.
func (s *Service) LendOrReturn(userID, bookID uint, friendID *uint) (*entities.Book, error) {
	if friendID == nil {
		return s.Return(userID, bookID)
	}
	return s.Lend(userID, bookID, *friendID)
}

func (s *Service) loadBook(op string, bookID uint) (*entities.Book, error) {
	book, err := s.store.GetBookByID(bookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.notFound(op, "book_id", bookID)
			return nil, ErrBookNotFound
		}
		s.failed(op)
		return nil, fmt.Errorf("failed to load book %d: %w", bookID, err)
	}
	return book, nil
}

func (s *Service) save(op string, book *entities.Book) error {
	if err := s.store.SaveBook(book); err != nil {
		s.failed(op)
		return fmt.Errorf("failed to save book %d: %w", book.ID, err)
	}
	return nil
}

func (s *Service) applied(userID uint, op, action string, book *entities.Book, description string) {
	s.observe(op, metrics.ResultApplied)
	s.log.WithFields(logrus.Fields{
		"operation":  op,
		"book_id":    book.ID,
		"copy_count": book.CopyCount,
		"user_id":    userID,
	}).Info("Ledger updated")
	if s.recorder != nil {
		s.recorder.LogLedger(userID, action, book.ID, description)
	}
}

func (s *Service) notFound(op, field string, id uint) {
	s.observe(op, metrics.ResultNotFound)
	s.log.WithFields(logrus.Fields{"operation": op, field: id}).Debug("Ledger target not found, ignoring")
}

func (s *Service) failed(op string) {
	s.observe(op, metrics.ResultError)
}

func (s *Service) observe(op, result string) {
	if s.observer != nil {
		s.observer.RecordLedgerOperation(op, result)
	}
}
