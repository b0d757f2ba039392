package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jeffkershner/subconscious-demo/internal/job"
	"github.com/jeffkershner/subconscious-demo/internal/queue"
	"github.com/jeffkershner/subconscious-demo/internal/store"
	"github.com/jeffkershner/subconscious-demo/internal/stream"
)

const defaultListLimit = 50

// Deps are the collaborators the HTTP layer delegates to.
type Deps struct {
	Store                store.Store
	Queue                queue.Queue
	Bridge               *stream.Bridge
	EstimatedWaitSeconds int
}

// NewRouter builds the gin engine with all routes attached.
func NewRouter(d Deps) *gin.Engine {
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// submit
	r.POST("/jobs", func(c *gin.Context) {
		var req struct {
			Prompt string `json:"prompt" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
			return
		}

		ctx := c.Request.Context()
		j := job.New(uuid.NewString(), req.Prompt, d.EstimatedWaitSeconds)

		if err := d.Store.Put(ctx, j); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if err := d.Store.IndexAdd(ctx, j.ID, time.Now()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if err := d.Queue.Push(ctx, j.ID, j.Prompt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"job_id": j.ID})
	})

	// list recent
	r.GET("/jobs", func(c *gin.Context) {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
		if err != nil || limit < 1 {
			limit = defaultListLimit
		}

		jobs, err := d.Store.Recent(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if jobs == nil {
			jobs = []job.Job{}
		}
		c.JSON(http.StatusOK, gin.H{"jobs": jobs})
	})

	// get one
	r.GET("/jobs/:id", func(c *gin.Context) {
		j, err := d.Store.Get(c.Request.Context(), c.Param("id"))
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, j)
	})

	// live event stream (SSE)
	r.GET("/jobs/:id/stream", func(c *gin.Context) {
		events, err := d.Bridge.Open(c.Request.Context(), c.Param("id"))
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		h := c.Writer.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		// keep nginx and friends from buffering the stream
		h.Set("X-Accel-Buffering", "no")

		c.Stream(func(w io.Writer) bool {
			ev, ok := <-events
			if !ok {
				return false
			}
			data, err := json.Marshal(ev)
			if err != nil {
				log.Printf("[api] encode event: %v", err)
				return true
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			return true
		})
	})

	return r
}
