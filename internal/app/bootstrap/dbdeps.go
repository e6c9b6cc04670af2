// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"sync"

	"github.com/dalemusser/ridehub/internal/app/system/events"
	"github.com/dalemusser/ridehub/internal/app/system/tasks"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database and back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Background is filled in by BuildHandler and drained by Shutdown.
	Background *Background
}

// Background tracks the goroutines started outside request handling.
type Background struct {
	mu        sync.Mutex
	bus       *events.Bus
	scheduler *tasks.Scheduler
}

func (b *Background) set(bus *events.Bus, s *tasks.Scheduler) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bus, b.scheduler = bus, s
}

func (b *Background) get() (*events.Bus, *tasks.Scheduler) {
	if b == nil {
		return nil, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bus, b.scheduler
}
