package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type TestSuite struct {
	Name    string
	Command []string
}

type TestResult struct {
	Suite    string
	Success  bool
	Output   string
	Duration time.Duration
}

type TestRunnerConfig struct {
	TestRunner struct {
		TestsDir  string `toml:"tests_dir"`
		OutputDir string `toml:"output_dir"`
	} `toml:"test_runner"`
	TestApp struct {
		Port     int    `toml:"port"`
		User     string `toml:"user"`
		Password string `toml:"password"`
	} `toml:"test_app"`
	Target struct {
		BaseURL string `toml:"base_url"` // Existing application; empty starts the bundled test app
	} `toml:"target"`
	StartupTimeoutSeconds int `toml:"startup_timeout_seconds"`
}

// loadConfig loads the test runner configuration
func loadConfig() (*TestRunnerConfig, error) {
	exePath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}

	// Executable directory first, then the current directory
	configPath := filepath.Join(filepath.Dir(exePath), "crudcheck-test-runner.toml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		configPath = "crudcheck-test-runner.toml"
	}

	var config TestRunnerConfig
	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
		fmt.Printf("No %s found, using defaults\n", configPath)
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := toml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if config.TestRunner.TestsDir == "" {
		config.TestRunner.TestsDir = "./test"
	}
	if config.TestRunner.OutputDir == "" {
		config.TestRunner.OutputDir = "./test/results"
	}
	if config.TestApp.Port == 0 {
		config.TestApp.Port = 8085
	}
	if config.TestApp.User == "" {
		config.TestApp.User = "tester@example.com"
	}
	if config.TestApp.Password == "" {
		config.TestApp.Password = "test-password"
	}
	if config.StartupTimeoutSeconds == 0 {
		config.StartupTimeoutSeconds = 10
	}
	return &config, nil
}

func main() {
	fmt.Println("==============================================")
	fmt.Println("crudcheck Test Runner")
	fmt.Println("==============================================")
	fmt.Println()

	config, err := loadConfig()
	if err != nil {
		fmt.Printf("ERROR: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Configuration:\n")
	fmt.Printf("  Tests Directory: %s\n", config.TestRunner.TestsDir)
	fmt.Printf("  Output Directory: %s\n\n", config.TestRunner.OutputDir)

	// Step 1: application under test
	fmt.Println("STEP 1: Preparing application under test...")
	fmt.Println(strings.Repeat("-", 80))

	baseURL := config.Target.BaseURL
	if baseURL == "" {
		app, err := StartTestApp(config.TestApp.Port, config.TestApp.User, config.TestApp.Password)
		if err != nil {
			fmt.Printf("ERROR: Failed to start test application: %v\n", err)
			os.Exit(1)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := app.Shutdown(ctx); err != nil {
				fmt.Printf("WARNING: Test application shutdown failed: %v\n", err)
			}
			fmt.Println("✓ Test application stopped")
		}()
		baseURL = fmt.Sprintf("http://localhost:%d", config.TestApp.Port)
	} else {
		fmt.Printf("Using existing application at %s (will not be stopped)\n", baseURL)
	}

	startupTimeout := time.Duration(config.StartupTimeoutSeconds) * time.Second
	if err := waitForService(baseURL, startupTimeout); err != nil {
		fmt.Printf("ERROR: Application did not become ready: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Application ready on %s\n\n", baseURL)

	// Step 2: run suites
	fmt.Println("STEP 2: Running tests...")
	fmt.Println(strings.Repeat("-", 80))

	uiTestPath := filepath.ToSlash(filepath.Join(config.TestRunner.TestsDir, "ui"))
	suites := []TestSuite{
		{
			Name:    "Unit Tests",
			Command: []string{"go", "test", "./internal/..."},
		},
		{
			Name:    "UI Tests",
			Command: []string{"go", "test", "-v", "-count=1", "./" + uiTestPath},
		},
	}

	fmt.Printf("Test results will be saved to: %s/{testname}-{datetime}/\n\n", config.TestRunner.OutputDir)

	env := []string{
		"CRUDCHECK_BASE_URL=" + baseURL,
		"CRUDCHECK_TEST_USER=" + config.TestApp.User,
		"CRUDCHECK_TEST_PASSWORD=" + config.TestApp.Password,
	}

	results := make([]TestResult, 0, len(suites))
	allPassed := true
	for _, suite := range suites {
		fmt.Printf("Running %s...\n", suite.Name)
		fmt.Println(strings.Repeat("-", 80))

		result := runTestSuite(suite, config.TestRunner.OutputDir, env)
		results = append(results, result)

		if result.Success {
			fmt.Printf("✓ %s PASSED (%.2fs)\n\n", suite.Name, result.Duration.Seconds())
		} else {
			fmt.Printf("✗ %s FAILED (%.2fs)\n\n", suite.Name, result.Duration.Seconds())
			allPassed = false
		}
	}

	printSummary(results, allPassed)

	if !allPassed {
		os.Exit(1)
	}
}

// waitForService polls the application's landing page until it answers 200
func waitForService(url string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 2 * time.Second}

	for time.Now().Before(deadline) {
		resp, err := client.Get(url + "/")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(250 * time.Millisecond)
	}

	return fmt.Errorf("service did not become ready within %v", timeout)
}

func runTestSuite(suite TestSuite, outputDir string, env []string) TestResult {
	startTime := time.Now()
	timestamp := startTime.Format("2006-01-02_15-04-05")

	// {output_dir}/{testname}-{datetime}/
	suiteDir := filepath.Join(outputDir, fmt.Sprintf("%s-%s", sanitizeFilename(suite.Name), timestamp))
	if err := os.MkdirAll(suiteDir, 0755); err != nil {
		fmt.Printf("ERROR: Failed to create suite directory: %v\n", err)
	}
	absSuiteDir, err := filepath.Abs(suiteDir)
	if err != nil {
		fmt.Printf("ERROR: Failed to resolve absolute path: %v\n", err)
		absSuiteDir = suiteDir
	}

	cmd := exec.Command(suite.Command[0], suite.Command[1:]...)
	cmd.Dir = "."
	cmd.Env = append(append(os.Environ(), env...), "CRUDCHECK_RESULTS_DIR="+absSuiteDir)

	output, err := cmd.CombinedOutput()
	duration := time.Since(startTime)

	if writeErr := os.WriteFile(filepath.Join(suiteDir, "test.log"), output, 0644); writeErr != nil {
		fmt.Printf("WARNING: Failed to save test log: %v\n", writeErr)
	}
	if err != nil {
		fmt.Print(string(output))
	}

	return TestResult{
		Suite:    suite.Name,
		Success:  err == nil,
		Output:   string(output),
		Duration: duration,
	}
}

func printSummary(results []TestResult, allPassed bool) {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("TEST SUMMARY")
	fmt.Println(strings.Repeat("=", 80))

	totalDuration := time.Duration(0)
	passed := 0
	failed := 0

	for _, result := range results {
		status := "PASS"
		if !result.Success {
			status = "FAIL"
			failed++
		} else {
			passed++
		}

		fmt.Printf("%-30s %s (%.2fs)\n", result.Suite, status, result.Duration.Seconds())
		totalDuration += result.Duration
	}

	fmt.Println(strings.Repeat("-", 80))
	fmt.Printf("Total: %d passed, %d failed (%.2fs)\n", passed, failed, totalDuration.Seconds())

	if allPassed {
		fmt.Println("\n✓ ALL TESTS PASSED")
	} else {
		fmt.Println("\n✗ SOME TESTS FAILED")
	}
}

func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		" ", "_",
		"/", "_",
		"\\", "_",
		":", "_",
	)
	return strings.ToLower(replacer.Replace(name))
}
