package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"khabarchat/config"
	"khabarchat/models"
	"khabarchat/poller"
	"khabarchat/service"
	"khabarchat/state"
	"khabarchat/transport"
	"khabarchat/ui"
)

func main() {
	cfg, cfgPath, err := config.LoadOrCreate()
	if err != nil {
		log.Fatalf("startup failed while loading config: %v", err)
	}

	if cfg.SessionToken == "" || cfg.UserID == 0 {
		log.Fatalf("no session configured: set session_token and user_id in %s", cfgPath)
	}

	fmt.Printf("Client ID:       %s\n", cfg.ClientID)
	fmt.Printf("Server URL:      %s\n", cfg.ServerURL)
	fmt.Printf("User ID:         %d\n", cfg.UserID)
	fmt.Printf("Config File:     %s\n", cfgPath)

	client := transport.NewClient(cfg.ServerURL, cfg.SessionToken)
	svc := service.New(client)
	store := state.NewStore()
	view := ui.NewMessageView(svc, store, cfg.UserID)

	scheduler := poller.NewScheduler(svc, store, poller.Config{
		ConversationInterval: time.Duration(cfg.ConversationPollSeconds) * time.Second,
		MessageInterval:      time.Duration(cfg.MessagePollSeconds) * time.Second,
		SortKey:              models.SortLatest,
	})
	scheduler.Start()
	defer scheduler.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println("Status:          running (press Ctrl+C to stop)")
	go renderOnChange(ctx, store, view)
	<-ctx.Done()
	fmt.Println("Status:          shutting down")
}

// renderOnChange redraws the message view whenever the store changes.
func renderOnChange(ctx context.Context, store *state.Store, view *ui.MessageView) {
	changes, unsubscribe := store.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
			view.Render(os.Stdout)
		}
	}
}
