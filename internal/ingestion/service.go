package ingestion

import (
	"github.com/aevon-lab/wmean/internal/core/storage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Service struct {
	store            storage.EventStore
	maxBodySizeBytes int
	newID            func() (string, error)
}

func NewService(repo storage.EventStore, maxBodySizeMB int) *Service {
	if repo == nil {
		panic("ingestion: store must not be nil")
	}
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1 // default to 1MB
	}
	return &Service{
		store:            repo,
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
		newID:            newEventID,
	}
}

// newEventID returns a time-ordered UUIDv7 for events submitted without an id.
func newEventID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// RegisterRoutes registers the ingestion service routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/events", s.IngestHandler)
}
