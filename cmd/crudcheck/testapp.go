package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ternarybob/crudcheck/internal/testapp"
)

var testappCmd = &cobra.Command{
	Use:   "testapp",
	Short: "Serve a local contact list application to run scenarios against",
	Args:  cobra.NoArgs,
	RunE:  runTestApp,
}

var (
	testappAddr  string
	testappUsers []string
)

func init() {
	testappCmd.Flags().StringVar(&testappAddr, "addr", "localhost:8085", "Listen address")
	testappCmd.Flags().StringArrayVar(&testappUsers, "user", nil, "User to register as email:password (repeatable)")
}

func runTestApp(cmd *cobra.Command, args []string) error {
	store := testapp.NewStore()
	for _, u := range testappUsers {
		email, password, ok := strings.Cut(u, ":")
		if !ok || email == "" {
			return fmt.Errorf("invalid --user %q, want email:password", u)
		}
		if _, err := store.AddUser("Test", "User", email, password); err != nil {
			return err
		}
		logger.Info().Str("email", email).Msg("User registered")
	}

	srv := testapp.New(store, logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(testappAddr)
	}()

	logger.Info().Str("url", "http://"+testappAddr).Msg("Test application ready - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info().Msg("Interrupt signal received")
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Test application shutdown failed")
	}
	logger.Info().Msg("Test application stopped")
	return nil
}
