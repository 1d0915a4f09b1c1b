package entities

import (
	"time"
)

type Author struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FullName  string    `gorm:"index;size:100" json:"full_name"`
	BirthYear int       `json:"birth_year"`
	Country   string    `gorm:"size:2" json:"country"`
	Books     []Book    `gorm:"foreignKey:AuthorID" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Publisher struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:128" json:"name"`
	Books     []Book    `gorm:"foreignKey:PublisherID" json:"books,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Friend struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"index;size:128" json:"name"`
	Contact   string    `gorm:"size:256" json:"contact,omitempty"`
	Books     []Book    `gorm:"foreignKey:LendedToID" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Book is one catalog title. CopyCount is the number of physical copies owned
// and never goes below zero. LendedToID is nil while the book is at home.
type Book struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ISBN        string     `gorm:"index;size:13" json:"isbn"`
	Title       string     `gorm:"index;size:128" json:"title"`
	Description string     `gorm:"type:text" json:"description,omitempty"`
	YearRelease int        `json:"year_release"`
	AuthorID    uint       `gorm:"index" json:"author_id"`
	Author      Author     `gorm:"foreignKey:AuthorID" json:"author"`
	PublisherID *uint      `gorm:"index" json:"publisher_id,omitempty"`
	Publisher   *Publisher `gorm:"foreignKey:PublisherID" json:"publisher,omitempty"`
	CopyCount   int        `gorm:"not null;default:1" json:"copy_count"`
	Price       float64    `gorm:"type:decimal(10,2);default:0" json:"price"`
	LendedToID  *uint      `gorm:"index" json:"lended_to_id,omitempty"`
	LendedTo    *Friend    `gorm:"foreignKey:LendedToID" json:"lended_to,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsLent reports whether a copy is currently with a friend.
func (b *Book) IsLent() bool {
	return b.LendedToID != nil
}

func (Author) TableName() string {
	return "authors"
}

func (Publisher) TableName() string {
	return "publishers"
}

func (Friend) TableName() string {
	return "friends"
}

func (Book) TableName() string {
	return "books"
}
