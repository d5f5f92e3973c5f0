package session_test

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/aussiebroadwan/neoschool/pkg/credstore"
	"github.com/aussiebroadwan/neoschool/pkg/schoolsdk"
	"github.com/aussiebroadwan/neoschool/pkg/slogx"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Container setup and shared helpers for the session end-to-end tests. The
 * schoold image is built once; every test gets its own container.
 */

const (
	testImageName = "neoschool-schoold-test:latest"

	adminUsername   = "admin"
	adminPassword   = "Admin123!"
	teacherUsername = "teacher"
	teacherPassword = "Teacher123!"
	jwtSecret       = "e2e-secret-e2e-secret-e2e-secret-e2e"
)

// TestMain builds the Docker image once before all tests and removes it
// afterwards. Nothing runs under -short.
func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		fmt.Fprintln(os.Stdout, "skipping container tests in -short mode")
		os.Exit(0)
	}

	fmt.Fprintf(os.Stdout, "Building schoold Docker image...")
	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up schoold Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	cmd := exec.CommandContext(context.Background(), "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/schoold/Dockerfile",
		"../../../")
	cmd.Stdout = os.Stdout
	return cmd.Run()
}

func cleanupDockerImage() {
	cmd := exec.CommandContext(context.Background(), "docker", "rmi", "-f", testImageName)
	_ = cmd.Run() // Ignore errors - image might not exist
}

// containerOptions adjusts the environment of one schoold container.
type containerOptions struct {
	accessTTL string
}

// setupSchoold starts schoold and returns its API base URL. The container
// is terminated when the test ends.
func setupSchoold(t *testing.T, opts containerOptions) string {
	t.Helper()
	ctx := context.Background()

	if opts.accessTTL == "" {
		opts.accessTTL = "15m"
	}

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env: map[string]string{
			"SCHOOLD_JWT_SECRET":       jwtSecret,
			"SCHOOLD_ADMIN_USERNAME":   adminUsername,
			"SCHOOLD_ADMIN_PASSWORD":   adminPassword,
			"SCHOOLD_TEACHER_USERNAME": teacherUsername,
			"SCHOOLD_TEACHER_PASSWORD": teacherPassword,
			"SCHOOLD_ACCESS_TTL":       opts.accessTTL,
			"SCHOOLD_CLOCK_SKEW":       "0s",
			"ENV":                      "test",
			"LOG_LEVEL":                "info",
			"LOG_FORMAT":               "json",
			// Tests log in far more often than a person would.
			"RATELIMIT_LOGIN_REQUESTS":   "1000",
			"RATELIMIT_LOGIN_BURST":      "1000",
			"RATELIMIT_REFRESH_REQUESTS": "1000",
			"RATELIMIT_REFRESH_BURST":    "1000",
		},
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	return fmt.Sprintf("http://%s:%s/api", host, mappedPort.Port())
}

// newClient returns an SDK client with an in-process credential store.
func newClient(baseURL string) *schoolsdk.SDKClient {
	store := credstore.New(nil, nil, credstore.WithLogger(slogx.Discard()))
	return schoolsdk.NewSDKClient(baseURL, store, schoolsdk.WithLogger(slogx.Discard()))
}

// loginAs logs c in and fails the test on error.
func loginAs(t *testing.T, c *schoolsdk.SDKClient, username, password string) schoolsdk.User {
	t.Helper()
	user, err := c.Login(t.Context(), username, password, false)
	require.NoError(t, err)
	return user
}
