// Package catalog provides database operations for books, authors,
// publishers and friends.
//
// Lookups return errors wrapping gorm.ErrRecordNotFound when the row is
// absent so callers can tell a missing record from a storage failure.
//
// # Usage
//
//	repo := catalog.NewRepository(db)
//	book, err := repo.GetBookByID(42)
//	lent, err := repo.ListLentBooks()
package catalog

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/plibrary/internal/entities"
)

// Repository handles catalog database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new catalog repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetBookByID retrieves a book with its author, publisher and borrower.
func (r *Repository) GetBookByID(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.withRelations(r.db).First(&book, id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// SaveBook writes every column of the book. Associations are left untouched,
// so a nil LendedToID clears the borrower.
func (r *Repository) SaveBook(book *entities.Book) error {
	return r.db.Omit(clause.Associations).Save(book).Error
}

// CreateBook inserts a new book. An explicit zero CopyCount is kept rather
// than replaced by the column default.
func (r *Repository) CreateBook(book *entities.Book) error {
	wantZero := book.CopyCount == 0
	if err := r.db.Omit(clause.Associations).Create(book).Error; err != nil {
		return err
	}
	if wantZero {
		book.CopyCount = 0
		return r.db.Model(book).Update("copy_count", 0).Error
	}
	return nil
}

// ListBooks returns all books ordered by title.
func (r *Repository) ListBooks() ([]entities.Book, error) {
	var books []entities.Book
	err := r.withRelations(r.db).Order("title ASC, id ASC").Find(&books).Error
	return books, err
}

// ListLentBooks returns books currently held by a friend.
func (r *Repository) ListLentBooks() ([]entities.Book, error) {
	var books []entities.Book
	err := r.withRelations(r.db).
		Where("lended_to_id IS NOT NULL").
		Order("title ASC, id ASC").
		Find(&books).Error
	return books, err
}

func (r *Repository) withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Author").Preload("Publisher").Preload("LendedTo")
}

// CreateAuthor inserts a new author.
func (r *Repository) CreateAuthor(author *entities.Author) error {
	return r.db.Omit(clause.Associations).Create(author).Error
}

// ListAuthors returns all authors ordered by name.
func (r *Repository) ListAuthors() ([]entities.Author, error) {
	var authors []entities.Author
	err := r.db.Order("full_name ASC, id ASC").Find(&authors).Error
	return authors, err
}

// AuthorExists reports whether an author with the given ID is stored.
func (r *Repository) AuthorExists(id uint) (bool, error) {
	return r.exists(&entities.Author{}, id)
}

// CreatePublisher inserts a new publisher. Names are unique.
func (r *Repository) CreatePublisher(publisher *entities.Publisher) error {
	return r.db.Omit(clause.Associations).Create(publisher).Error
}

// ListPublishers returns all publishers with their books.
func (r *Repository) ListPublishers() ([]entities.Publisher, error) {
	var publishers []entities.Publisher
	err := r.db.Preload("Books", func(db *gorm.DB) *gorm.DB {
		return db.Order("title ASC")
	}).Order("name ASC").Find(&publishers).Error
	return publishers, err
}

// PublisherExists reports whether a publisher with the given ID is stored.
func (r *Repository) PublisherExists(id uint) (bool, error) {
	return r.exists(&entities.Publisher{}, id)
}

// PublisherNameTaken reports whether a publisher already uses the name.
func (r *Repository) PublisherNameTaken(name string) (bool, error) {
	var count int64
	err := r.db.Model(&entities.Publisher{}).Where("name = ?", name).Count(&count).Error
	return count > 0, err
}

// GetFriendByID retrieves a friend by ID.
func (r *Repository) GetFriendByID(id uint) (*entities.Friend, error) {
	var friend entities.Friend
	err := r.db.First(&friend, id).Error
	if err != nil {
		return nil, err
	}
	return &friend, nil
}

// CreateFriend inserts a new friend.
func (r *Repository) CreateFriend(friend *entities.Friend) error {
	return r.db.Omit(clause.Associations).Create(friend).Error
}

// ListFriends returns all friends ordered by name.
func (r *Repository) ListFriends() ([]entities.Friend, error) {
	var friends []entities.Friend
	err := r.db.Order("name ASC, id ASC").Find(&friends).Error
	return friends, err
}

func (r *Repository) exists(model any, id uint) (bool, error) {
	var count int64
	err := r.db.Model(model).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}
