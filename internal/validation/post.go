package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"randomblog/internal/models"
	"randomblog/internal/slug"
)

// ValidatePost checks the fields staff submit on the post form.
// An empty slug is allowed and means "derive one from the title".
func ValidatePost(title, body, explicitSlug string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return errors.New("title is required")
	}
	if utf8.RuneCountInString(title) > models.PostTitleMaxLength {
		return fmt.Errorf("title must not exceed %d characters", models.PostTitleMaxLength)
	}
	if strings.TrimSpace(body) == "" {
		return errors.New("body is required")
	}

	explicitSlug = strings.TrimSpace(explicitSlug)
	if explicitSlug == "" {
		return nil
	}
	if len(explicitSlug) > models.PostSlugMaxLength {
		return fmt.Errorf("slug must not exceed %d characters", models.PostSlugMaxLength)
	}
	if !slug.IsURLSafe(explicitSlug) {
		return errors.New("slug can only contain letters, numbers, underscores, and hyphens")
	}
	return nil
}
