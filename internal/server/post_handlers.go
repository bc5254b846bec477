package server

import (
	"randomblog/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ListPosts handles GET /
// @Summary List published posts
// @Description Published posts, newest first
// @Tags posts
// @Produce json
// @Success 200 {object} object{posts=[]models.Post}
// @Router / [get]
func (s *Server) ListPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListPublished(c.UserContext())
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"posts": posts})
}

// GetPost handles GET /post/:slug
// @Summary Get a published post
// @Description Signed-in readers get a visit recorded on every view
// @Tags posts
// @Produce json
// @Param slug path string true "Post slug"
// @Success 200 {object} object{post=models.Post}
// @Failure 404 {object} models.ErrorResponse
// @Router /post/{slug} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	post, err := s.postService.GetPublishedBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		return models.Respond(c, err)
	}

	if user := currentUser(c); user != nil {
		if err := s.visitService.RecordVisit(c.UserContext(), user.ID, post.ID); err != nil {
			return models.Respond(c, err)
		}
	}
	return c.JSON(fiber.Map{"post": post})
}

// Profile handles GET /profile
// @Summary Reading history
// @Description Visits of the signed-in user and the number of distinct posts read
// @Tags profile
// @Produce json
// @Success 200 {object} object{user=models.User,visits=[]models.PostVisit,total_posts=int}
// @Failure 302 "Redirect to /login"
// @Router /profile [get]
func (s *Server) Profile(c *fiber.Ctx) error {
	user := currentUser(c)
	dashboard, err := s.visitService.Dashboard(c.UserContext(), user.ID)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"user":        user,
		"visits":      dashboard.Visits,
		"total_posts": dashboard.TotalPosts,
	})
}
