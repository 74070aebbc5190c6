package server

import (
	"strconv"

	"github.com/IlyaEru/blog-api/internal/models"
	"github.com/IlyaEru/blog-api/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetComments handles GET /api/v1/comments
// @Summary List comments
// @Description Oldest first. Filter by post with postId.
// @Tags comments
// @Produce json
// @Param postId query int false "Post ID"
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset"
// @Success 200 {object} object{comments=[]models.Comment}
// @Failure 400 {object} models.ErrorResponse
// @Router /comments [get]
func (s *Server) GetComments(c *fiber.Ctx) error {
	page := parsePagination(c, defaultPaginationLimit)

	var postID uint
	if raw := c.Query("postId"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || v == 0 {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid post ID"))
		}
		postID = uint(v)
	}

	comments, err := s.commentService.ListComments(c.UserContext(), service.ListCommentsInput{
		PostID: postID,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"comments": comments})
}

// GetComment handles GET /api/v1/comments/:id
// @Summary Get comment
// @Tags comments
// @Produce json
// @Param id path int true "Comment ID"
// @Success 200 {object} object{comment=models.Comment}
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id} [get]
func (s *Server) GetComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	comment, err := s.commentService.GetComment(c.UserContext(), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"comment": comment})
}

// CreateComment handles POST /api/v1/comments
// @Summary Create comment
// @Description Anonymous. An empty name is stored as "Anonymous". An unknown postId is a 400.
// @Tags comments
// @Accept json
// @Produce json
// @Param request body object{postId=int,name=string,body=string} true "Comment"
// @Success 201 {object} object{comment=models.Comment}
// @Failure 400 {object} models.ErrorResponse
// @Router /comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	var req struct {
		PostID uint   `json:"postId"`
		Name   string `json:"name"`
		Body   string `json:"body"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	comment, err := s.commentService.CreateComment(c.UserContext(), service.CreateCommentInput{
		PostID: req.PostID,
		Name:   req.Name,
		Body:   req.Body,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"comment": comment})
}

// UpdateComment handles PUT /api/v1/comments/:id
// @Summary Update comment
// @Description Omitted fields are left unchanged. The post cannot be changed.
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Param request body object{name=string,body=string} true "Changes"
// @Success 200 {object} object{comment=models.Comment}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id} [put]
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Name *string `json:"name"`
		Body *string `json:"body"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	comment, err := s.commentService.UpdateComment(c.UserContext(), service.UpdateCommentInput{
		CommentID: id,
		Name:      req.Name,
		Body:      req.Body,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"comment": comment})
}

// DeleteComment handles DELETE /api/v1/comments/:id
// @Summary Delete comment
// @Tags comments
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Success 204
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.commentService.DeleteComment(c.UserContext(), id); err != nil {
		return s.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteComments handles DELETE /api/v1/comments
// @Summary Delete comments in bulk
// @Description Unknown ids are ignored. The number deleted is reported in X-Deleted-Count.
// @Tags comments
// @Accept json
// @Security BearerAuth
// @Param request body object{ids=[]int} true "Comment IDs"
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /comments [delete]
func (s *Server) DeleteComments(c *fiber.Ctx) error {
	var req struct {
		IDs []uint `json:"ids"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	deleted, err := s.commentService.DeleteComments(c.UserContext(), req.IDs)
	if err != nil {
		return s.respondError(c, err)
	}
	c.Set("X-Deleted-Count", strconv.Itoa(deleted))
	return c.SendStatus(fiber.StatusNoContent)
}
