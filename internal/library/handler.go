package library

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Doudousmyle42/mangatracker/internal/providers"
	"github.com/Doudousmyle42/mangatracker/internal/util"
)

type Handler struct {
	Service *Service
	Preview providers.Extractor
}

func NewHandler(svc *Service, preview providers.Extractor) *Handler {
	if preview == nil {
		preview = svc.Extractor()
	}

	return &Handler{Service: svc, Preview: preview}
}

// NewRouter builds the HTTP API. metrics may be nil.
func NewRouter(h *Handler, metrics http.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	h.RegisterRoutes(r.Group("/api"))

	return r
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/mangas", h.list)
	rg.POST("/mangas", h.add)
	rg.GET("/mangas/:id", h.getOne)
	rg.PUT("/mangas/:id/chapter", h.setChapter)
	rg.POST("/mangas/:id/refresh", h.refresh)
	rg.DELETE("/mangas/:id", h.remove)
	rg.GET("/preview", h.preview)
}

type addReq struct {
	URL string `json:"url"`
}

type chapterReq struct {
	Chapter string `json:"chapter"`
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.Service.List(c.Request.Context(), c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

func (h *Handler) add(c *gin.Context) {
	var req addReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	e, err := h.Service.Add(c.Request.Context(), req.URL)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, e)
}

func (h *Handler) getOne(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	e, err := h.Service.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, e)
}

func (h *Handler) setChapter(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req chapterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	e, err := h.Service.SetChapter(c.Request.Context(), id, req.Chapter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, e)
}

func (h *Handler) refresh(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	e, newer, err := h.Service.Refresh(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	h.forgetPreview(e.URL)
	c.JSON(http.StatusOK, gin.H{"item": e, "new_chapter": newer})
}

func (h *Handler) remove(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	e, err := h.Service.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.Service.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	h.forgetPreview(e.URL)
	c.Status(http.StatusNoContent)
}

// forgetPreview drops a cached preview so the next one sees fresh data.
func (h *Handler) forgetPreview(url string) {
	if f, ok := h.Preview.(interface{ Forget(string) }); ok {
		f.Forget(url)
	}
}

func (h *Handler) preview(c *gin.Context) {
	raw, err := validateURL(c.Query("url"))
	if err != nil {
		writeError(c, err)
		return
	}

	res, err := h.Preview.Extract(c.Request.Context(), raw)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}

	return id, true
}

func writeError(c *gin.Context, err error) {
	var fe *util.FetchError

	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrEmptyURL), errors.Is(err, ErrInvalidURL), errors.Is(err, ErrEmptyChapter):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &fe):
		c.JSON(http.StatusBadGateway, gin.H{"error": fe.Error(), "status": fe.StatusCode})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
