package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/storynest/storynest/internal/domain"
	"github.com/storynest/storynest/internal/imagery"
	"github.com/storynest/storynest/internal/present/rest/middleware"
	"github.com/storynest/storynest/internal/present/rest/presenter"
	"github.com/storynest/storynest/internal/service"
	"github.com/storynest/storynest/internal/storyview"
	"github.com/storynest/storynest/internal/telemetry"
	"github.com/storynest/storynest/internal/usecase"
)

type Handler struct {
	story       *usecase.StoryUsecase
	profile     *usecase.ProfileUsecase
	generation  *usecase.GenerationUsecase
	narration   *usecase.NarrationUsecase
	contact     *usecase.ContactUsecase
	illustrator *imagery.Illustrator
	signal      *service.SignalService
	metrics     *telemetry.Metrics
	auth        *middleware.AuthMiddleware
	limiter     *middleware.RateLimiter
}

func NewHandler(
	story *usecase.StoryUsecase,
	profile *usecase.ProfileUsecase,
	generation *usecase.GenerationUsecase,
	narration *usecase.NarrationUsecase,
	contact *usecase.ContactUsecase,
	illustrator *imagery.Illustrator,
	signal *service.SignalService,
	metrics *telemetry.Metrics,
	auth *middleware.AuthMiddleware,
	limiter *middleware.RateLimiter,
) *Handler {
	return &Handler{
		story:       story,
		profile:     profile,
		generation:  generation,
		narration:   narration,
		contact:     contact,
		illustrator: illustrator,
		signal:      signal,
		metrics:     metrics,
		auth:        auth,
		limiter:     limiter,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.Validator = NewValidator()

	e.GET("/healthz", h.handleHealth)
	e.GET("/metrics", echo.WrapHandler(h.metrics.Handler()))

	api := e.Group("/api", h.auth.IdentifyIdentity)

	generate := api.Group("", h.limiter.Middleware)
	generate.POST("/generate-story", h.handleGenerateStory)
	generate.POST("/generate-title", h.handleGenerateTitle)
	generate.POST("/generate-suggestion", h.handleGenerateSuggestion)
	generate.POST("/generate-image", h.handleGenerateImage)
	api.GET("/generate-image", h.handleImageHealth)
	generate.POST("/tts", h.handleTTS)
	api.POST("/upload_audio", h.handleUploadAudio, middleware.RequireIdentity)

	v1 := api.Group("/v1")
	v1.GET("/voices", h.handleVoices)
	v1.POST("/contact", h.handleContact)

	authed := v1.Group("", middleware.RequireIdentity)
	authed.GET("/children/:id/stories", h.handleChildStories)
	authed.GET("/stories", h.handleListStories)
	authed.GET("/stories/recent", h.handleRecentStories)
	authed.GET("/stories/favorites", h.handleFavoriteStories)
	authed.POST("/stories", h.handleCreateStory)
	authed.GET("/stories/:id", h.handleGetStory)
	authed.PUT("/stories/:id", h.handleUpdateStory)
	authed.DELETE("/stories/:id", h.handleDeleteStory)
	authed.PUT("/stories/:id/favorite", h.handleSetFavorite)
	authed.PUT("/stories/:id/publish", h.handleSetPublished)
	authed.GET("/profile", h.handleGetProfile)
	authed.PUT("/profile", h.handleUpdateProfile)
	authed.PUT("/profile/avatar", h.handleUploadAvatar)
	authed.DELETE("/profile/avatar", h.handleDeleteAvatar)
	authed.GET("/family/stories", h.handleFamilyStories)
	authed.GET("/family/children", h.handleListChildren)
	authed.POST("/family/children", h.handleCreateChild)
	authed.PUT("/family/children/:id", h.handleUpdateChild)
	authed.DELETE("/family/children/:id", h.handleDeleteChild)
	authed.PUT("/family/children/:id/avatar", h.handleUploadChildAvatar)
	authed.DELETE("/family/children/:id/avatar", h.handleDeleteChildAvatar)
	authed.GET("/realtime", h.handleRealtime)
}

func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return domain.ValidationError{Reason: "malformed request body"}
	}
	return c.Validate(v)
}

func limitParam(c echo.Context) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, domain.ValidationError{Field: "limit", Reason: "must be a non-negative integer"}
	}
	if limit > 100 {
		limit = 100
	}
	return limit, nil
}

func viewOptions(c echo.Context) (storyview.Options, error) {
	status, err := storyview.ParseStatus(c.QueryParam("status"))
	if err != nil {
		return storyview.Options{}, err
	}
	return storyview.Options{Status: status, Term: c.QueryParam("q")}, nil
}

func (h *Handler) handleHealth(c echo.Context) error {
	return presenter.OK(c, echo.Map{"status": "ok"})
}

// stories

func (h *Handler) handleChildStories(c echo.Context) error {
	ctx := c.Request().Context()

	opts, err := viewOptions(c)
	if err != nil {
		return presenter.Error(c, err)
	}
	stories, err := h.story.ChildStories(ctx, middleware.RequesterID(c), c.Param("id"), opts)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, stories)
}

func (h *Handler) handleListStories(c echo.Context) error {
	ctx := c.Request().Context()

	opts, err := viewOptions(c)
	if err != nil {
		return presenter.Error(c, err)
	}
	stories, err := h.story.ListByUser(ctx, middleware.RequesterID(c), opts)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, stories)
}

func (h *Handler) handleRecentStories(c echo.Context) error {
	ctx := c.Request().Context()

	limit, err := limitParam(c)
	if err != nil {
		return presenter.Error(c, err)
	}
	stories, err := h.story.Recent(ctx, middleware.RequesterID(c), limit)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, stories)
}

func (h *Handler) handleFavoriteStories(c echo.Context) error {
	ctx := c.Request().Context()

	limit, err := limitParam(c)
	if err != nil {
		return presenter.Error(c, err)
	}
	stories, err := h.story.Favorites(ctx, middleware.RequesterID(c), limit)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, stories)
}

func (h *Handler) handleFamilyStories(c echo.Context) error {
	ctx := c.Request().Context()
	requester := middleware.RequesterID(c)

	profile, err := h.profile.Get(ctx, requester)
	if err != nil {
		return presenter.Error(c, err)
	}
	stories, err := h.story.ListByFamily(ctx, requester, profile.FamilyID)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, stories)
}

func (h *Handler) handleCreateStory(c echo.Context) error {
	ctx := c.Request().Context()

	var in domain.StoryInput
	if err := bind(c, &in); err != nil {
		return presenter.Error(c, err)
	}

	var story domain.Story
	var err error
	if in.ChildID != nil && *in.ChildID != "" {
		story, err = h.story.CreateForChild(ctx, middleware.RequesterID(c), in, *in.ChildID)
	} else {
		story, err = h.story.Create(ctx, middleware.RequesterID(c), in)
	}
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Created(c, story)
}

func (h *Handler) handleGetStory(c echo.Context) error {
	ctx := c.Request().Context()

	story, err := h.story.GetWithAudio(ctx, middleware.RequesterID(c), c.Param("id"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, story)
}

func (h *Handler) handleUpdateStory(c echo.Context) error {
	ctx := c.Request().Context()

	var in domain.StoryInput
	if err := bind(c, &in); err != nil {
		return presenter.Error(c, err)
	}
	story, err := h.story.Update(ctx, middleware.RequesterID(c), c.Param("id"), in)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, story)
}

func (h *Handler) handleDeleteStory(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.story.Delete(ctx, middleware.RequesterID(c), c.Param("id")); err != nil {
		return presenter.Error(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type favoriteRequest struct {
	IsFavorite *bool `json:"isFavorite" validate:"required"`
}

func (h *Handler) handleSetFavorite(c echo.Context) error {
	ctx := c.Request().Context()

	var req favoriteRequest
	if err := bind(c, &req); err != nil {
		return presenter.Error(c, err)
	}
	story, err := h.story.SetFavorite(ctx, middleware.RequesterID(c), c.Param("id"), *req.IsFavorite)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, story)
}

type publishRequest struct {
	IsPublished *bool `json:"isPublished" validate:"required"`
}

func (h *Handler) handleSetPublished(c echo.Context) error {
	ctx := c.Request().Context()

	var req publishRequest
	if err := bind(c, &req); err != nil {
		return presenter.Error(c, err)
	}
	story, err := h.story.SetPublished(ctx, middleware.RequesterID(c), c.Param("id"), *req.IsPublished)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, story)
}

// profile and family

func (h *Handler) handleGetProfile(c echo.Context) error {
	profile, err := h.profile.Get(c.Request().Context(), middleware.RequesterID(c))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, profile)
}

func (h *Handler) handleUpdateProfile(c echo.Context) error {
	var in domain.ProfileInput
	if err := bind(c, &in); err != nil {
		return presenter.Error(c, err)
	}
	profile, err := h.profile.Update(c.Request().Context(), middleware.RequesterID(c), in)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, profile)
}

func (h *Handler) handleUploadAvatar(c echo.Context) error {
	var in domain.AvatarUpload
	if err := bind(c, &in); err != nil {
		return presenter.Error(c, err)
	}
	profile, err := h.profile.UploadAvatar(c.Request().Context(), middleware.RequesterID(c), in)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, profile)
}

func (h *Handler) handleDeleteAvatar(c echo.Context) error {
	profile, err := h.profile.DeleteAvatar(c.Request().Context(), middleware.RequesterID(c))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, profile)
}

func (h *Handler) handleListChildren(c echo.Context) error {
	children, err := h.profile.ListChildren(c.Request().Context(), middleware.RequesterID(c))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, children)
}

func (h *Handler) handleCreateChild(c echo.Context) error {
	var in domain.ChildInput
	if err := bind(c, &in); err != nil {
		return presenter.Error(c, err)
	}
	child, err := h.profile.CreateChild(c.Request().Context(), middleware.RequesterID(c), in)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Created(c, child)
}

func (h *Handler) handleUpdateChild(c echo.Context) error {
	var in domain.ChildInput
	if err := bind(c, &in); err != nil {
		return presenter.Error(c, err)
	}
	child, err := h.profile.UpdateChild(c.Request().Context(), middleware.RequesterID(c), c.Param("id"), in)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, child)
}

func (h *Handler) handleDeleteChild(c echo.Context) error {
	if err := h.profile.DeleteChild(c.Request().Context(), middleware.RequesterID(c), c.Param("id")); err != nil {
		return presenter.Error(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) handleUploadChildAvatar(c echo.Context) error {
	var in domain.AvatarUpload
	if err := bind(c, &in); err != nil {
		return presenter.Error(c, err)
	}
	child, err := h.profile.UploadChildAvatar(c.Request().Context(), middleware.RequesterID(c), c.Param("id"), in)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, child)
}

func (h *Handler) handleDeleteChildAvatar(c echo.Context) error {
	child, err := h.profile.DeleteChildAvatar(c.Request().Context(), middleware.RequesterID(c), c.Param("id"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, child)
}

// generation

func (h *Handler) handleGenerateStory(c echo.Context) error {
	var prompt domain.StoryPrompt
	if err := bind(c, &prompt); err != nil {
		return presenter.Error(c, err)
	}
	story, err := h.generation.GenerateStory(c.Request().Context(), prompt)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, story)
}

type titleRequest struct {
	StoryContent string `json:"storyContent" validate:"required"`
}

func (h *Handler) handleGenerateTitle(c echo.Context) error {
	var req titleRequest
	if err := bind(c, &req); err != nil {
		return presenter.Error(c, err)
	}
	title, err := h.generation.GenerateTitle(c.Request().Context(), req.StoryContent)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"title": title})
}

type suggestionRequest struct {
	CurrentText string `json:"currentText" validate:"required"`
}

func (h *Handler) handleGenerateSuggestion(c echo.Context) error {
	var req suggestionRequest
	if err := bind(c, &req); err != nil {
		return presenter.Error(c, err)
	}
	suggestion, err := h.generation.GenerateSuggestion(c.Request().Context(), req.CurrentText)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"suggestion": suggestion})
}

func (h *Handler) handleGenerateImage(c echo.Context) error {
	var req imagery.Request
	if err := bind(c, &req); err != nil {
		return presenter.Error(c, err)
	}
	illustration, _ := h.illustrator.Illustrate(req)
	return presenter.OK(c, illustration)
}

func (h *Handler) handleImageHealth(c echo.Context) error {
	return presenter.OK(c, echo.Map{
		"message":   "image generation available",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// narration

func (h *Handler) handleTTS(c echo.Context) error {
	var req domain.SpeechRequest
	if err := bind(c, &req); err != nil {
		return presenter.Error(c, err)
	}
	audio, cached, err := h.narration.Synthesize(c.Request().Context(), req)
	if err != nil {
		return presenter.Error(c, err)
	}
	h.metrics.ObserveNarration(cached)
	return presenter.OK(c, echo.Map{"audioContent": audio, "cached": cached})
}

func (h *Handler) handleUploadAudio(c echo.Context) error {
	var in domain.AudioUpload
	if err := bind(c, &in); err != nil {
		return presenter.Error(c, err)
	}
	audio, err := h.narration.UploadAudio(c.Request().Context(), middleware.RequesterID(c), in)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{
		"success":     true,
		"downloadURL": audio.AudioURL,
		"audio":       audio,
	})
}

func (h *Handler) handleVoices(c echo.Context) error {
	return presenter.OK(c, domain.VoiceOptions)
}

// contact

func (h *Handler) handleContact(c echo.Context) error {
	var msg domain.ContactMessage
	if err := bind(c, &msg); err != nil {
		return presenter.Error(c, err)
	}
	id, err := h.contact.Send(c.Request().Context(), msg)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Created(c, echo.Map{"id": id, "status": domain.ContactStatusNew})
}
