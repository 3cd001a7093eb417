package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/quillsync/quillsync/internal/actor"
	"github.com/quillsync/quillsync/internal/apperrors"
	"github.com/quillsync/quillsync/internal/document"
	"github.com/quillsync/quillsync/pkg/logger"
	"github.com/quillsync/quillsync/pkg/middleware"
)

var upgrader = websocket.Upgrader{
	// cross-origin policy is applied by the CORS middleware and the upgrade
	// request carries its own credential
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// RegisterDocumentRoutes wires the document API. Every route authenticates
// through the verifier; actor errors pass through with their contractual
// status codes.
func RegisterDocumentRoutes(r *gin.Engine, ver middleware.Verifier, docs *actor.DocumentRegistry, idx *actor.IndexRegistry) {
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	api := r.Group("/api", middleware.AuthMiddleware(ver))

	api.GET("/documents", func(c *gin.Context) {
		uid := c.GetString(middleware.ContextUserIDKey)
		entries, tags, err := idx.List(c.Request.Context(), uid)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"documents": entries, "tags": tags})
	})

	api.POST("/documents", func(c *gin.Context) {
		uid := c.GetString(middleware.ContextUserIDKey)
		var p document.Patch
		if err := c.ShouldBindJSON(&p); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}
		rec, err := idx.Create(c.Request.Context(), uid, p)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"document": rec})
	})

	api.GET("/documents/:id", func(c *gin.Context) {
		uid := c.GetString(middleware.ContextUserIDKey)
		rec, err := docs.Read(c.Request.Context(), c.Param("id"), uid)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"document": rec})
	})

	api.POST("/documents/:id", func(c *gin.Context) {
		uid := c.GetString(middleware.ContextUserIDKey)
		var p document.Patch
		if err := c.ShouldBindJSON(&p); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}
		rec, err := idx.Update(c.Request.Context(), uid, c.Param("id"), p)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"document": rec})
	})

	api.GET("/documents/:id/realtime", func(c *gin.Context) {
		uid := c.GetString(middleware.ContextUserIDKey)
		docID := c.Param("id")
		// existence and ownership are checked before the upgrade so failures
		// still surface as plain HTTP status codes
		if _, err := docs.Read(c.Request.Context(), docID, uid); err != nil {
			writeError(c, err)
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warnf("websocket upgrade failed for document %s: %v", docID, err)
			return
		}
		docs.Serve(c.Request.Context(), docID, uid, conn)
	})
}

func writeError(c *gin.Context, err error) {
	c.JSON(apperrors.HTTPStatus(err), gin.H{"error": err.Error()})
}
