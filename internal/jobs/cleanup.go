package jobs

import (
	"context"
	"log"
	"time"

	"github.com/qaplus/widget-backend/internal/storage"
)

// SessionCleanupJob prunes expired widget sessions on a schedule. Expiry
// already makes a session unusable the moment it passes; this job only
// keeps the table from growing without bound. A grace period is kept so a
// just-expired token still classifies as "expired" rather than "invalid"
// when the widget replays it.
type SessionCleanupJob struct {
	store    storage.Store
	interval time.Duration
	grace    time.Duration
	stop     chan struct{}
	running  bool
}

// NewSessionCleanupJob creates a new session cleanup job
func NewSessionCleanupJob(store storage.Store, interval time.Duration) *SessionCleanupJob {
	return &SessionCleanupJob{
		store:    store,
		interval: interval,
		grace:    24 * time.Hour,
		stop:     make(chan struct{}),
	}
}

// Start begins the scheduled cleanup loop
func (j *SessionCleanupJob) Start() {
	if j.running {
		log.Println("Session cleanup job already running")
		return
	}
	j.running = true
	log.Printf("Starting session cleanup job (every %v)", j.interval)

	go j.run()
}

// Stop halts the cleanup loop
func (j *SessionCleanupJob) Stop() {
	if !j.running {
		return
	}
	j.running = false
	close(j.stop)
	log.Println("Stopping session cleanup job...")
}

func (j *SessionCleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.sweep()
		case <-j.stop:
			return
		}
	}
}

func (j *SessionCleanupJob) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-j.grace)
	deleted, err := j.store.DeleteExpiredSessions(ctx, cutoff)
	if err != nil {
		log.Printf("⚠️  Session cleanup failed: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("🧹 Pruned %d expired sessions", deleted)
	}
}
