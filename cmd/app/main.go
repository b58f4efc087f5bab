package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skygear-market/messaging/internal/config"
	"github.com/skygear-market/messaging/internal/database"
	"github.com/skygear-market/messaging/internal/gateway"
	"github.com/skygear-market/messaging/internal/handler"
	"github.com/skygear-market/messaging/internal/middleware"
	"github.com/skygear-market/messaging/internal/nlog"
	"github.com/skygear-market/messaging/internal/registry"
	"github.com/skygear-market/messaging/internal/repository"
	"github.com/skygear-market/messaging/internal/service"

	"github.com/gorilla/mux"
)

func main() {
	conf, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Open(conf.DatabasePath)
	if err != nil {
		log.Fatalf("could not open the database: %v", err)
	}

	userRepo := repository.NewSQLiteUserRepository(db)
	convRepo := repository.NewSQLiteConversationRepository(db)
	msgRepo := repository.NewSQLiteMessageRepository(db)

	chatService := service.NewChatService(convRepo, msgRepo, userRepo, nlog.NewSubsystem("chat"))
	authService := service.NewAuthService(
		userRepo,
		conf.JWTSecret,
		time.Duration(conf.TokenTTLHours)*time.Hour,
		nlog.NewSubsystem("auth"),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := registry.NewRegistry()

	// Cross-process fan-out only runs when a relay endpoint is configured;
	// a single gateway works purely in memory.
	var relay registry.Relay
	var zrelay *registry.ZMQRelay
	if conf.RelayBind != "" {
		zrelay, err = registry.NewZMQRelay(conf.RelayBind, conf.RelayPeers, nlog.NewSubsystem("relay"))
		if err != nil {
			log.Fatalf("could not start the relay: %v", err)
		}
		defer zrelay.Close()
		relay = zrelay
	}

	dispatcher := registry.NewDispatcher(reg, relay, nlog.NewSubsystem("dispatch"))
	if zrelay != nil {
		go zrelay.Run(ctx, dispatcher.Apply)
	}

	gw := gateway.New(chatService, authService, reg, dispatcher, conf.AllowedOrigin, nlog.NewSubsystem("gateway"))
	chatHandler := handler.NewChatHandler(chatService, nlog.NewSubsystem("chat-http"))
	authHandler := handler.NewAuthHandler(authService, nlog.NewSubsystem("auth-http"))

	r := mux.NewRouter()

	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	r.HandleFunc("/conversations", middleware.Auth(authService, chatHandler.List)).Methods("GET")
	r.HandleFunc("/conversations", middleware.Auth(authService, chatHandler.Create)).Methods("POST")
	r.HandleFunc("/conversations/{otherUserID}", middleware.Auth(authService, chatHandler.GetOrCreate)).Methods("GET")
	r.HandleFunc("/conversations/{conversationID}/messages", middleware.Auth(authService, chatHandler.ListMessages)).Methods("GET")
	r.HandleFunc("/conversations/{conversationID}/messages", middleware.Auth(authService, chatHandler.PostMessage)).Methods("POST")

	r.HandleFunc("/ws", gw.Handle)

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintln(w, `{"status":"ok"}`)
	}).Methods("GET")

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", conf.Port),
		Handler:        r,
		ReadTimeout:    time.Duration(conf.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(conf.WriteTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		<-ctx.Done()
		log.Println("received stop signal, shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("error during shutdown: %v", err)
		}
	}()

	log.Printf("messaging server listening on :%d", conf.Port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("http server error: %v", err)
	}
}
