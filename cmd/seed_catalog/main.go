// Command seed_catalog fills a database with a small sample catalog.
// Usage: go run cmd/seed_catalog/main.go [-db path/to/plibrary.db] [-fresh]
package main

import (
	"flag"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/mrlokans/plibrary/internal/config"
	"github.com/mrlokans/plibrary/internal/database"
	"github.com/mrlokans/plibrary/internal/database/catalog"
	"github.com/mrlokans/plibrary/internal/entities"
	"github.com/mrlokans/plibrary/internal/logging"
)

type sampleBook struct {
	entities.Book
	author    string
	publisher string
}

func main() {
	dbPath := flag.String("db", config.DefaultDatabasePath, "path to the database file")
	fresh := flag.Bool("fresh", false, "delete the database before seeding")
	flag.Parse()

	log := logging.New("info", "text")
	log.WithField("path", *dbPath).Info("Seeding catalog")

	if *fresh {
		if err := os.Remove(*dbPath); err != nil && !os.IsNotExist(err) {
			log.WithError(err).Fatal("Failed to remove existing database")
		}
	}

	db, err := database.NewDatabase(*dbPath, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to open database")
	}
	defer db.Close()

	repo := catalog.NewRepository(db.DB)

	existing, err := repo.ListBooks()
	if err != nil {
		log.WithError(err).Fatal("Failed to list books")
	}
	if len(existing) > 0 {
		log.WithField("books", len(existing)).Warn("Catalog is not empty, use -fresh to start over")
		return
	}

	publishers := map[string]*entities.Publisher{}
	for _, name := range []string{"Penguin Classics", "Gollancz", "Vintage"} {
		p := &entities.Publisher{Name: name}
		if err := repo.CreatePublisher(p); err != nil {
			log.WithError(err).WithField("publisher", name).Fatal("Failed to create publisher")
		}
		publishers[name] = p
	}

	authors := map[string]*entities.Author{}
	for _, a := range []entities.Author{
		{FullName: "Marcus Aurelius", BirthYear: 121, Country: "IT"},
		{FullName: "Stanislaw Lem", BirthYear: 1921, Country: "PL"},
		{FullName: "Ursula K. Le Guin", BirthYear: 1929, Country: "US"},
		{FullName: "Italo Calvino", BirthYear: 1923, Country: "IT"},
	} {
		if err := repo.CreateAuthor(&a); err != nil {
			log.WithError(err).WithField("author", a.FullName).Fatal("Failed to create author")
		}
		authors[a.FullName] = &a
	}

	books := []sampleBook{
		{author: "Marcus Aurelius", publisher: "Penguin Classics", Book: entities.Book{
			ISBN: "9780140449334", Title: "Meditations", YearRelease: 2006, CopyCount: 2, Price: 9.99,
			Description: "Private notes on Stoic practice.",
		}},
		{author: "Stanislaw Lem", publisher: "Gollancz", Book: entities.Book{
			ISBN: "9780156027601", Title: "Solaris", YearRelease: 1961, CopyCount: 1, Price: 12.50,
		}},
		{author: "Stanislaw Lem", Book: entities.Book{
			ISBN: "9780156495882", Title: "The Cyberiad", YearRelease: 1965, CopyCount: 1, Price: 14,
		}},
		{author: "Ursula K. Le Guin", publisher: "Gollancz", Book: entities.Book{
			ISBN: "9780441478125", Title: "The Left Hand of Darkness", YearRelease: 1969, CopyCount: 3, Price: 10.99,
		}},
		{author: "Italo Calvino", publisher: "Vintage", Book: entities.Book{
			ISBN: "9780099429838", Title: "Invisible Cities", YearRelease: 1972, CopyCount: 0, Price: 8.99,
		}},
	}

	saved := make([]*entities.Book, 0, len(books))
	for _, sb := range books {
		book := sb.Book
		book.AuthorID = authors[sb.author].ID
		if p, ok := publishers[sb.publisher]; ok {
			book.PublisherID = &p.ID
		}
		if err := repo.CreateBook(&book); err != nil {
			log.WithError(err).WithField("title", book.Title).Fatal("Failed to create book")
		}
		saved = append(saved, &book)
	}

	var friends []*entities.Friend
	for _, f := range []entities.Friend{
		{Name: "Hari Seldon", Contact: "hari@example.com"},
		{Name: "Kris Kelvin", Contact: "+48 555 0101"},
	} {
		if err := repo.CreateFriend(&f); err != nil {
			log.WithError(err).WithField("friend", f.Name).Fatal("Failed to create friend")
		}
		friends = append(friends, &f)
	}

	// One book is already out
	saved[1].LendedToID = &friends[1].ID
	if err := repo.SaveBook(saved[1]); err != nil {
		log.WithError(err).Fatal("Failed to lend book")
	}

	log.WithFields(logrus.Fields{
		"publishers": len(publishers),
		"authors":    len(authors),
		"books":      len(saved),
		"friends":    len(friends),
	}).Info("Catalog seeded")
}
