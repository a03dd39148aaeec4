package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ternarybob/crudcheck/internal/fixtures"
	"github.com/ternarybob/crudcheck/internal/models"
	"github.com/ternarybob/crudcheck/internal/services/contactsapi"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Call the contacts REST API as the fixture's valid user",
}

var apiListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored contacts",
	Args:  cobra.NoArgs,
	RunE:  runAPIList,
}

var apiCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a contact",
	Args:  cobra.NoArgs,
	RunE:  runAPICreate,
}

var apiDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete contacts by id",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAPIDelete,
}

var newContact models.Contact

func init() {
	f := apiCreateCmd.Flags()
	f.StringVar(&newContact.FirstName, "first-name", "", "First name")
	f.StringVar(&newContact.LastName, "last-name", "", "Last name")
	f.StringVar(&newContact.DateOfBirth, "dob", "", "Birthdate (yyyy-MM-dd)")
	f.StringVar(&newContact.Email, "email", "", "Email")
	f.StringVar(&newContact.Phone, "phone", "", "Phone")
	f.StringVar(&newContact.Address, "address", "", "Street address")
	f.StringVar(&newContact.City, "city", "", "City")
	f.StringVar(&newContact.State, "state", "", "State or province")
	f.StringVar(&newContact.PostalCode, "postal", "", "Postal code")
	_ = apiCreateCmd.MarkFlagRequired("first-name")
	_ = apiCreateCmd.MarkFlagRequired("last-name")

	apiCmd.AddCommand(apiListCmd, apiCreateCmd, apiDeleteCmd)
}

// authenticatedClient logs in through the API with the fixture credentials
func authenticatedClient(ctx context.Context) (*contactsapi.Client, models.APIToken, error) {
	login, err := fixtures.LoadLogin(config.Fixtures.Login, logger)
	if err != nil {
		return nil, "", err
	}
	client := contactsapi.NewClient(config.ResolvedAPIURL(),
		contactsapi.WithTimeout(config.API.Timeout.D()),
		contactsapi.WithRateLimit(config.API.RateLimit.D()),
		contactsapi.WithLogger(logger),
	)
	token, err := client.Authenticate(ctx, login.ValidUser)
	if err != nil {
		return nil, "", err
	}
	return client, token, nil
}

func runAPIList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client, token, err := authenticatedClient(ctx)
	if err != nil {
		return err
	}
	contacts, err := client.List(ctx, token)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tBIRTHDATE\tEMAIL\tPHONE")
	for _, c := range contacts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.DisplayName(), c.DateOfBirth, c.Email, c.Phone)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	logger.Info().Int("count", len(contacts)).Msg("Contacts listed")
	return nil
}

func runAPICreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client, token, err := authenticatedClient(ctx)
	if err != nil {
		return err
	}
	stored, err := client.Create(ctx, token, newContact)
	if err != nil {
		return err
	}
	fmt.Println(stored.ID)
	logger.Info().Str("id", stored.ID).Str("contact", stored.DisplayName()).Msg("Contact created")
	return nil
}

func runAPIDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client, token, err := authenticatedClient(ctx)
	if err != nil {
		return err
	}
	for _, id := range args {
		if err := client.Delete(ctx, token, id); err != nil {
			return err
		}
		logger.Info().Str("id", id).Msg("Contact deleted")
	}
	return nil
}
