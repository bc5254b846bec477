package seed

import (
	"context"
	"fmt"
	"strings"

	"randomblog/internal/models"
	"randomblog/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the password of every reader created by the factory.
const DemoPassword = "password123"

// Factory builds demo posts and readers from a seeded faker, so the same
// seed always produces the same content.
type Factory struct {
	db    *gorm.DB
	faker *gofakeit.Faker
}

func NewFactory(db *gorm.DB, seed int64) *Factory {
	return &Factory{db: db, faker: gofakeit.New(seed)}
}

// BuildPost returns post input with a sentence title, a few paragraphs of body
// text and a picsum image keyed by a fresh uuid.
func (f *Factory) BuildPost(published bool) service.PostInput {
	title := strings.TrimSuffix(f.faker.Sentence(f.faker.Number(3, 7)), ".")
	return service.PostInput{
		Title:     title,
		ImageURL:  fmt.Sprintf("https://picsum.photos/seed/%s/800/400", f.faker.UUID()),
		Body:      f.faker.Paragraph(f.faker.Number(2, 4), 4, 12, "\n\n"),
		Published: published,
	}
}

// CreateReader inserts a non-staff user that can sign in with DemoPassword.
func (f *Factory) CreateReader(ctx context.Context) (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}

	first := f.faker.FirstName()
	last := f.faker.LastName()
	user := &models.User{
		Username:  strings.ToLower(fmt.Sprintf("%s.%s%d", first, last, f.faker.Number(10, 9999))),
		Email:     strings.ToLower(fmt.Sprintf("%s.%s@example.com", first, last)),
		FirstName: first,
		LastName:  last,
		Password:  string(hashed),
	}
	if err := f.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("create reader %s: %w", user.Username, err)
	}
	return user, nil
}

// Pick returns a pseudo-random index below n.
func (f *Factory) Pick(n int) int {
	if n <= 1 {
		return 0
	}
	return f.faker.Number(0, n-1)
}
