package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"user-mvi/cmd/userclient/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := app.New(ctx, os.Stdout)
	if err != nil {
		log.Fatalf("failed to initialize client: %v", err)
	}

	if err := client.Run(ctx, os.Stdin); err != nil {
		log.Fatalf("client exited with error: %v", err)
	}
}
