package main

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/crudcheck/internal/testapp"
)

// StartTestApp serves the bundled contact list application on port with one registered user
func StartTestApp(port int, user, password string) (*testapp.Server, error) {
	store := testapp.NewStore()
	if _, err := store.AddUser("Test", "User", user, password); err != nil {
		return nil, err
	}

	srv := testapp.New(store, arbor.NewNoOpLogger())
	go func() {
		if err := srv.Start(fmt.Sprintf(":%d", port)); err != nil {
			fmt.Printf("Test application error: %v\n", err)
		}
	}()

	fmt.Printf("✓ Test application starting on port %d (user %s)\n", port, user)
	return srv, nil
}
