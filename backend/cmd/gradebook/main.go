// ============================================================================
// backend/cmd/gradebook/main.go
// Entry point for the Gradebook Service
// ============================================================================

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"schooldash/backend/internal/gateway"
	"schooldash/backend/internal/grade"
	"schooldash/backend/internal/grade/session"
	"schooldash/backend/internal/grade/store"
	"schooldash/backend/internal/shared"
)

func main() {
	log.Println("INFO: Starting Gradebook Service...")

	if err := shared.LoadEnv(".env"); err != nil {
		log.Println("WARN: .env file not found, using system environment variables")
	}

	config, err := shared.LoadServiceConfig("gradebook")
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	if shared.IsDevelopment(config) {
		shared.PrintConfig(config)
	}

	// 1. Score store
	scoreStore, mongoClient := openStore(config)
	defer func() {
		if err := shared.DisconnectMongoDB(mongoClient); err != nil {
			log.Printf("ERROR: disconnecting from MongoDB: %v", err)
		}
	}()

	// 2. Matrix views
	views := session.NewManager(scoreStore, session.Options{
		ViewTTL:          config.Gradebook.ViewTTL,
		SweepInterval:    config.Gradebook.SweepInterval,
		SlotsPerSemester: config.Gradebook.SlotsPerSemester,
	})
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go views.Run(sweepCtx)

	// 3. Routes and server
	router := gateway.SetupRoutes(gateway.Dependencies{Store: scoreStore, Views: views, Config: config})
	server := &http.Server{
		Addr:         ":" + config.ServicePort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("INFO: Gradebook listening on port %s", config.ServicePort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("FATAL: HTTP server error: %v", err)
		}
	}()

	// 4. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("INFO: Shutting down Gradebook Service...")

	ctx, cancel := context.WithTimeout(context.Background(), config.Gradebook.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("ERROR: HTTP server shutdown: %v", err)
	}
	stopSweep()
	if err := views.WaitAll(ctx); err != nil {
		log.Printf("WARN: shutting down with saves still in flight: %v", err)
	}

	log.Println("INFO: Gradebook Service stopped.")
}

// openStore builds the configured store. The mongo client is nil for other backends.
func openStore(config *shared.ServiceConfig) (store.Store, *mongo.Client) {
	switch config.Gradebook.Store {
	case shared.StoreMongo:
		client, db, err := shared.ConnectMongoDB(&config.MongoDB)
		if err != nil {
			log.Fatalf("FATAL: Failed to connect to MongoDB: %v", err)
		}
		s := store.NewMongoStore(db)
		if err := s.EnsureIndexes(context.Background()); err != nil {
			log.Printf("WARN: creating gradebook indexes: %v", err)
		}
		return s, client

	case shared.StoreREST:
		log.Printf("INFO: Using remote score store at %s", config.Gradebook.RemoteURL)
		return store.NewRESTStore(config.Gradebook.RemoteURL, config.Gradebook.RemoteToken, config.Gradebook.RemoteTimeout), nil

	default:
		log.Println("WARN: Using in-memory score store, data is lost on restart")
		return store.NewMemoryStore(demoStudents, demoSubjects), nil
	}
}

var (
	demoStudents = []grade.Student{
		{ID: "student-001", Name: "Ana Souza"},
		{ID: "student-002", Name: "Bruno Lima"},
		{ID: "student-003", Name: "Carla Dias"},
	}
	demoSubjects = []grade.Subject{
		{ID: "MAT", Name: "Matemática"},
		{ID: "POR", Name: "Língua Portuguesa"},
		{ID: "EDF", Name: "Educação Física", Concept: true},
	}
)
