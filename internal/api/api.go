// Package api serves the saved collection over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"

	harvesterrors "github.com/ppiankov/harvester/internal/errors"
	"github.com/ppiankov/harvester/internal/logging"
	"github.com/ppiankov/harvester/internal/model"
)

const (
	jsonContentType = "application/json; charset=utf-8"
	recordsKey      = "records"
)

// Loader reads the saved collection
type Loader interface {
	Load(ctx context.Context) ([]model.Record, error)
}

// Trigger queues harvest cycles on a scheduler.
type Trigger interface {
	// Trigger queues a cycle. It returns false when one is already queued.
	Trigger() bool
	// Running reports whether a cycle is in progress.
	Running() bool
}

type Handler struct {
	Store     Loader
	Harvester Trigger      // optional
	Metrics   http.Handler // optional

	cache *gocache.Cache
}

// NewHandler creates a handler caching the loaded collection for ttl. A
// non-positive ttl reloads the collection on every request.
func NewHandler(store Loader, ttl time.Duration) *Handler {
	h := &Handler{Store: store}
	if ttl > 0 {
		h.cache = gocache.New(ttl, 2*ttl)
	}
	return h
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	h.Register(r)
	return r
}

// Register adds the routes to r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", h.Health)
	r.GET("/infosystems", h.ListInfosystems)
	r.GET("/infosystem", h.GetInfosystem)
	r.POST("/harvest", h.TriggerHarvest)
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics))
	}
}

// Invalidate drops the cached collection so the next request reloads it.
func (h *Handler) Invalidate() {
	if h.cache != nil {
		h.cache.Delete(recordsKey)
	}
}

func (h *Handler) Health(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if h.Harvester != nil {
		body["harvesting"] = h.Harvester.Running()
	}
	c.JSON(http.StatusOK, body)
}

// ListInfosystems returns the saved documents, optionally only those of
// one owner.
func (h *Handler) ListInfosystems(c *gin.Context) {
	records, ok := h.load(c)
	if !ok {
		return
	}
	if owner, set := c.GetQuery("owner"); set {
		records = model.FilterByOwner(records, owner)
	}
	c.Data(http.StatusOK, jsonContentType, model.EncodeRecords(records))
}

// GetInfosystem returns one document by id.
func (h *Handler) GetInfosystem(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}

	records, ok := h.load(c)
	if !ok {
		return
	}
	for _, r := range records {
		if r.ID == id {
			c.Data(http.StatusOK, jsonContentType, r.Payload)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "infosystem not found"})
}

// TriggerHarvest queues a cycle on the running scheduler.
func (h *Handler) TriggerHarvest(c *gin.Context) {
	if h.Harvester == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "harvesting is not enabled on this server"})
		return
	}
	if !h.Harvester.Trigger() {
		c.JSON(http.StatusConflict, gin.H{"error": "a harvest is already queued"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

func (h *Handler) load(c *gin.Context) ([]model.Record, bool) {
	if h.cache != nil {
		if v, found := h.cache.Get(recordsKey); found {
			return v.([]model.Record), true
		}
	}

	records, err := h.Store.Load(c.Request.Context())
	if err != nil {
		if harvesterrors.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no collection has been saved yet"})
			return nil, false
		}
		logging.FromContext(c.Request.Context()).Error().Err(err).Msg("Failed to load collection")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}

	if h.cache != nil {
		h.cache.SetDefault(recordsKey, records)
	}
	return records, true
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logging.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request")
	}
}
