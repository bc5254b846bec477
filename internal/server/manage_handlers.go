package server

import (
	"randomblog/internal/middleware"
	"randomblog/internal/models"
	"randomblog/internal/service"

	"github.com/gofiber/fiber/v2"
)

const (
	manageDashboardPath = "/manage"
	manageLoginPath     = "/manage/login"
	slugHelpText        = "Leave blank to auto-generate from the title."
)

// postForm is the manage create/edit form. Published is a pointer so JSON
// clients can omit it; HTML forms send a checkbox that is absent when unchecked.
type postForm struct {
	Title     string `json:"title" form:"title"`
	Slug      string `json:"slug" form:"slug"`
	ImageURL  string `json:"image_url" form:"image_url"`
	Body      string `json:"body" form:"body"`
	Published *bool  `json:"published" form:"-"`
}

func parsePostForm(c *fiber.Ctx) (postForm, error) {
	var form postForm
	if err := c.BodyParser(&form); err != nil {
		return form, models.NewValidationError("Invalid request body")
	}
	if !c.Is("json") {
		published := isTruthy(c.FormValue("published"))
		form.Published = &published
	}
	return form, nil
}

func (f postForm) input(defaultPublished bool) service.PostInput {
	published := defaultPublished
	if f.Published != nil {
		published = *f.Published
	}
	return service.PostInput{
		Title:     f.Title,
		Slug:      f.Slug,
		ImageURL:  f.ImageURL,
		Body:      f.Body,
		Published: published,
	}
}

// ManageLoginPage handles GET /manage/login
func (s *Server) ManageLoginPage(c *fiber.Ctx) error {
	if user := currentUser(c); user != nil {
		return redirectSignedIn(c, user)
	}
	return c.JSON(fiber.Map{
		"fields": []string{"username", "password"},
		"next":   c.Query("next"),
	})
}

// ManageLogin handles POST /manage/login
// @Summary Staff login
// @Tags manage
// @Accept json,x-www-form-urlencoded
// @Param request body object{username=string,password=string} true "Credentials"
// @Success 302 "Redirect to /manage"
// @Failure 401 {object} models.ErrorResponse
// @Router /manage/login [post]
func (s *Server) ManageLogin(c *fiber.Ctx) error {
	if user := currentUser(c); user != nil {
		return redirectSignedIn(c, user)
	}

	req, err := parseCredentials(c)
	if err != nil {
		return models.Respond(c, err)
	}
	user, err := s.authService.Authenticate(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return models.Respond(c, err)
	}
	if _, err := s.sessions.Login(c, user.ID); err != nil {
		return models.Respond(c, models.NewInternalError(err))
	}
	middleware.SessionLogins.WithLabelValues("password").Inc()

	return c.Redirect(safeNext(req.Next, manageDashboardPath), fiber.StatusFound)
}

// redirectSignedIn sends staff to the dashboard and everyone else home.
func redirectSignedIn(c *fiber.Ctx, user *models.User) error {
	if user.IsStaff {
		return c.Redirect(manageDashboardPath, fiber.StatusFound)
	}
	return c.Redirect("/", fiber.StatusFound)
}

// ManageLogout handles POST /manage/logout
func (s *Server) ManageLogout(c *fiber.Ctx) error {
	if err := s.sessions.Logout(c); err != nil {
		return models.Respond(c, models.NewInternalError(err))
	}
	return c.Redirect(manageLoginPath, fiber.StatusFound)
}

// ManageDashboard handles GET /manage
// @Summary All posts, drafts included
// @Tags manage
// @Produce json
// @Success 200 {object} object{posts=[]models.Post}
// @Failure 403 {object} models.ErrorResponse
// @Router /manage [get]
func (s *Server) ManageDashboard(c *fiber.Ctx) error {
	posts, err := s.postService.ListAll(c.UserContext())
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"posts": posts})
}

// NewPostForm handles GET /manage/posts/new
func (s *Server) NewPostForm(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"mode": "create",
		"post": fiber.Map{"published": true},
		"help": fiber.Map{"slug": slugHelpText},
	})
}

// CreatePost handles POST /manage/posts/new
// @Summary Create a post
// @Description A blank slug is generated from the title
// @Tags manage
// @Accept json,x-www-form-urlencoded
// @Param request body object{title=string,slug=string,image_url=string,body=string,published=bool} true "Post form"
// @Success 302 "Redirect to /manage"
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /manage/posts/new [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	form, err := parsePostForm(c)
	if err != nil {
		return models.Respond(c, err)
	}
	if _, err := s.postService.CreatePost(c.UserContext(), form.input(true)); err != nil {
		return models.Respond(c, err)
	}
	return c.Redirect(manageDashboardPath, fiber.StatusFound)
}

// EditPostForm handles GET /manage/posts/:id/edit
func (s *Server) EditPostForm(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.postService.GetByID(c.UserContext(), id)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"mode": "edit",
		"post": post,
		"help": fiber.Map{"slug": slugHelpText},
	})
}

// UpdatePost handles POST /manage/posts/:id/edit
// @Summary Update a post
// @Description A blank slug is regenerated from the title; JSON clients that omit published keep the current value
// @Tags manage
// @Accept json,x-www-form-urlencoded
// @Param id path int true "Post ID"
// @Param request body object{title=string,slug=string,image_url=string,body=string,published=bool} true "Post form"
// @Success 302 "Redirect to /manage"
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /manage/posts/{id}/edit [post]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	form, err := parsePostForm(c)
	if err != nil {
		return models.Respond(c, err)
	}

	current, err := s.postService.GetByID(c.UserContext(), id)
	if err != nil {
		return models.Respond(c, err)
	}
	if _, err := s.postService.UpdatePost(c.UserContext(), id, form.input(current.Published)); err != nil {
		return models.Respond(c, err)
	}
	return c.Redirect(manageDashboardPath, fiber.StatusFound)
}

// DeletePostConfirm handles GET /manage/posts/:id/delete
func (s *Server) DeletePostConfirm(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.postService.GetByID(c.UserContext(), id)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"post": post})
}

// DeletePost handles POST /manage/posts/:id/delete
// @Summary Delete a post and its visits
// @Tags manage
// @Param id path int true "Post ID"
// @Success 302 "Redirect to /manage"
// @Failure 404 {object} models.ErrorResponse
// @Router /manage/posts/{id}/delete [post]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.DeletePost(c.UserContext(), id); err != nil {
		return models.Respond(c, err)
	}
	return c.Redirect(manageDashboardPath, fiber.StatusFound)
}
