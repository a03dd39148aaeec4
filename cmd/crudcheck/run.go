package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ternarybob/crudcheck/internal/browser"
	"github.com/ternarybob/crudcheck/internal/fixtures"
	"github.com/ternarybob/crudcheck/internal/report"
	"github.com/ternarybob/crudcheck/internal/scenarios"
	"github.com/ternarybob/crudcheck/internal/services/contactsapi"
)

const browserStartTimeout = 30 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the login and contact scenarios",
	Long: `Runs each scenario in its own browser session against the configured
application and prints a summary. Exits non-zero if any scenario fails.`,
	RunE: runScenarios,
}

var runSuites []string

func init() {
	runCmd.Flags().StringSliceVar(&runSuites, "suite", []string{scenarios.SuiteLogin, scenarios.SuiteContacts}, "Suites to run (login, contacts)")
}

func runScenarios(cmd *cobra.Command, args []string) error {
	for _, s := range runSuites {
		if s != scenarios.SuiteLogin && s != scenarios.SuiteContacts {
			return fmt.Errorf("unknown suite %q", s)
		}
	}

	loginFixture, err := fixtures.LoadLogin(config.Fixtures.Login, logger)
	if err != nil {
		return err
	}

	var plan []scenarios.Scenario
	var contactFixture *fixtures.Contacts
	if slices.Contains(runSuites, scenarios.SuiteLogin) {
		plan = append(plan, scenarios.LoginSuite(loginFixture)...)
	}
	if slices.Contains(runSuites, scenarios.SuiteContacts) {
		contactFixture, err = fixtures.LoadContacts(config.Fixtures.Contacts, logger)
		if err != nil {
			return err
		}
		plan = append(plan, scenarios.ContactSuite(contactFixture)...)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	factory, err := browser.NewFactory(browser.OptionsFromConfig(config), browserStartTimeout, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := factory.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close browser")
		}
	}()

	client := contactsapi.NewClient(config.ResolvedAPIURL(),
		contactsapi.WithTimeout(config.API.Timeout.D()),
		contactsapi.WithRateLimit(config.API.RateLimit.D()),
		contactsapi.WithLogger(logger),
	)

	started := time.Now()
	runner := scenarios.NewRunner(factory, config, client, loginFixture, contactFixture, logger)
	results := runner.Run(ctx, plan)

	if err := report.Render(os.Stdout, runner.RunID(), results); err != nil {
		logger.Warn().Err(err).Msg("Failed to print summary")
	}
	path, err := report.WriteJSON(config.Output.ResultsDir, report.NewRun(runner.RunID(), started, results))
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to write results file")
	} else {
		logger.Info().Str("path", path).Msg("Results written")
	}

	if !report.Count(results).OK() {
		return errScenariosFailed
	}
	return nil
}
