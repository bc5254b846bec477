package seed

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"randomblog/internal/service"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures/posts.yaml
var defaultFixtures []byte

// FixturePost is one post entry of a fixture file.
type FixturePost struct {
	Title     string `yaml:"title"`
	Slug      string `yaml:"slug"`
	ImageURL  string `yaml:"image_url"`
	Body      string `yaml:"body"`
	Published *bool  `yaml:"published"`
}

// Fixtures is the document layout of a fixture file.
type Fixtures struct {
	Posts []FixturePost `yaml:"posts"`
}

// Input converts the entry into service input. Entries without a published
// key are published.
func (p FixturePost) Input() service.PostInput {
	published := true
	if p.Published != nil {
		published = *p.Published
	}
	return service.PostInput{
		Title:     p.Title,
		Slug:      p.Slug,
		ImageURL:  p.ImageURL,
		Body:      strings.TrimRight(p.Body, "\n"),
		Published: published,
	}
}

// ParseFixtures decodes a fixture document.
func ParseFixtures(data []byte) (*Fixtures, error) {
	var fx Fixtures
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	for i, p := range fx.Posts {
		if strings.TrimSpace(p.Title) == "" {
			return nil, fmt.Errorf("parse fixtures: post %d has no title", i)
		}
	}
	return &fx, nil
}

// LoadFixtures reads the fixture file at path, or the bundled defaults when
// path is empty.
func LoadFixtures(path string) (*Fixtures, error) {
	if path == "" {
		return ParseFixtures(defaultFixtures)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return ParseFixtures(data)
}
