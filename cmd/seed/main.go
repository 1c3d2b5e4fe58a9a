package main

import (
	"context"
	"flag"
	"log"
	"time"

	"biblomnemon/internal/activity"
	"biblomnemon/internal/app"
	"biblomnemon/internal/category"
	"biblomnemon/internal/config"
	"biblomnemon/internal/library"
)

type seedBook struct {
	book       library.Book
	categories []string
}

func intPtr(v int) *int { return &v }

var demoBooks = []seedBook{
	{
		book: library.Book{
			Title:       "Dune",
			Authors:     []library.Author{{Name: "Frank Herbert"}},
			ISBN:        "9780441172719",
			Language:    "en",
			PublishYear: intPtr(1965),
			Publisher:   "Ace",
			PageCount:   intPtr(896),
		},
		categories: []string{"Science Fiction", "Favorites"},
	},
	{
		book: library.Book{
			Title:       "The Hobbit",
			Authors:     []library.Author{{Name: "J. R. R. Tolkien"}},
			ISBN:        "9780547928227",
			Language:    "en",
			PublishYear: intPtr(1937),
			Publisher:   "Mariner Books",
			PageCount:   intPtr(300),
		},
		categories: []string{"Fantasy", "Favorites"},
	},
	{
		book: library.Book{
			Title:       "Pride and Prejudice",
			Authors:     []library.Author{{Name: "Jane Austen"}},
			ISBN:        "9780141439518",
			Language:    "en",
			PublishYear: intPtr(1813),
			Publisher:   "Penguin Classics",
			PageCount:   intPtr(480),
		},
		categories: []string{"Classics"},
	},
	{
		book: library.Book{
			Title:       "A Brief History of Time",
			Authors:     []library.Author{{Name: "Stephen Hawking"}},
			ISBN:        "9780553380163",
			Language:    "en",
			PublishYear: intPtr(1988),
			Publisher:   "Bantam",
			PageCount:   intPtr(212),
		},
		categories: []string{"Science"},
	},
	{
		book: library.Book{
			Title: "Introduction to Algorithms",
			Authors: []library.Author{
				{Name: "Thomas H. Cormen"},
				{Name: "Charles E. Leiserson"},
				{Name: "Ronald L. Rivest"},
				{Name: "Clifford Stein"},
			},
			ISBN:        "9780262033848",
			Language:    "en",
			PublishYear: intPtr(2009),
			Publisher:   "MIT Press",
			PageCount:   intPtr(1312),
		},
		categories: []string{"Science", "Reference"},
	},
}

func main() {
	configPath := flag.String("config", "", "Path to a TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	pool, err := app.OpenDB(ctx, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	timeout := cfg.Database.Timeout.Std()
	categories := category.NewService(category.NewPostgresRepo(pool, timeout))
	books := library.NewService(library.NewPostgresRepo(pool, timeout), categories, nil)
	activities := activity.NewService(activity.NewPostgresRepo(pool, timeout))

	log.Printf("Seeding %d books...", len(demoBooks))
	var ids []string
	for _, sb := range demoBooks {
		b := sb.book
		b.Source = library.SourceManual
		if existing, err := books.GetByISBN(ctx, b.ISBN); err == nil {
			log.Printf("Skipping %q, already saved as %s", b.Title, existing.ID)
			ids = append(ids, existing.ID)
			continue
		}
		created, err := books.Create(ctx, b)
		if err != nil {
			log.Fatalf("Failed to insert %q: %v", b.Title, err)
		}
		for _, title := range sb.categories {
			c, err := categories.Ensure(ctx, title)
			if err != nil {
				log.Fatalf("Failed to ensure category %q: %v", title, err)
			}
			if err := categories.Link(ctx, created.ID, c.ID); err != nil {
				log.Fatalf("Failed to link %q to %q: %v", b.Title, title, err)
			}
		}
		ids = append(ids, created.ID)
	}

	now := time.Now().UTC()
	for i, id := range ids[:3] {
		bookID := id
		started := now.Add(-time.Duration(i+1) * 26 * time.Hour)
		ended := started.Add(time.Duration(45+i*20) * time.Minute)
		a := activity.ReadingActivity{
			BookID:    &bookID,
			Title:     "Evening reading",
			Started:   started,
			Ended:     &ended,
			PagesRead: intPtr(20 + i*15),
		}
		if _, err := activities.Create(ctx, a); err != nil {
			log.Fatalf("Failed to insert activity: %v", err)
		}
	}
	// one session still running
	if _, err := activities.Create(ctx, activity.ReadingActivity{
		Title:       "Magazine",
		Description: "Not linked to a saved book",
		Started:     now.Add(-20 * time.Minute),
	}); err != nil {
		log.Fatalf("Failed to insert activity: %v", err)
	}

	log.Printf("Successfully seeded %d books and 4 reading activities", len(ids))
}
