//go:build integration

package firestore

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brandforge/api/internal/domain"
	pconfig "github.com/brandforge/api/internal/platform/config"
	pfirestore "github.com/brandforge/api/internal/platform/firestore"
	"github.com/brandforge/api/internal/repositories"
)

func TestAccountRepositoryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}

	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not available: " + err.Error())
	}

	ensureDockerDaemon(t)

	port := freePort(t)
	endpoint := fmt.Sprintf("127.0.0.1:%d", port)
	containerID := startFirestoreEmulator(t, port)
	t.Cleanup(func() { stopContainer(containerID) })

	waitForEndpoint(t, endpoint, 30*time.Second)

	cfg := pconfig.FirestoreConfig{
		ProjectID:    "account-test",
		EmulatorHost: endpoint,
	}

	provider := pfirestore.NewProvider(cfg)
	t.Cleanup(func() {
		_ = provider.Close(context.Background())
	})

	repo, err := NewAccountRepository(provider)
	if err != nil {
		t.Fatalf("new account repository: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	profile := domain.NewAccountProfile{Email: "owner@example.com", Name: "Owner"}

	t.Run("first deduction provisions account with grant applied", func(t *testing.T) {
		account, err := repo.DeductCredits(ctx, "uid-fresh", 1, profile)
		if err != nil {
			t.Fatalf("deduct: %v", err)
		}
		if account.Credits != 9 || account.CreditsUsed != 1 {
			t.Fatalf("expected credits=9 used=1, got %+v", account)
		}
		if account.Plan != "free" || account.Onboarded {
			t.Fatalf("expected default free plan, got %+v", account)
		}
	})

	t.Run("failed first deduction leaves no account behind", func(t *testing.T) {
		_, err := repo.DeductCredits(ctx, "uid-expensive", domain.DefaultStartingCredits+1, profile)
		var insufficient *repositories.InsufficientCreditsError
		if !errors.As(err, &insufficient) {
			t.Fatalf("expected InsufficientCreditsError, got %v", err)
		}
		if insufficient.Available != domain.DefaultStartingCredits {
			t.Fatalf("expected available %d, got %d", domain.DefaultStartingCredits, insufficient.Available)
		}

		// A retry priced within the grant must provision from scratch.
		account, err := repo.DeductCredits(ctx, "uid-expensive", 2, profile)
		if err != nil {
			t.Fatalf("retry deduct: %v", err)
		}
		if account.Credits != 8 || account.CreditsUsed != 2 {
			t.Fatalf("expected fresh grant minus 2, got %+v", account)
		}
	})

	t.Run("concurrent deductions never double spend", func(t *testing.T) {
		const workers = 16
		const cost = 1

		var wg sync.WaitGroup
		wg.Add(workers)
		successes := make([]bool, workers)
		failures := make([]error, workers)

		for i := 0; i < workers; i++ {
			go func(idx int) {
				defer wg.Done()
				_, err := repo.DeductCredits(ctx, "uid-contended", cost, profile)
				if err == nil {
					successes[idx] = true
					return
				}
				failures[idx] = err
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, ok := range successes {
			if ok {
				succeeded++
			}
		}
		if succeeded != domain.DefaultStartingCredits {
			t.Fatalf("expected exactly %d successful deductions, got %d", domain.DefaultStartingCredits, succeeded)
		}
		for _, err := range failures {
			if err == nil {
				continue
			}
			var insufficient *repositories.InsufficientCreditsError
			if !errors.As(err, &insufficient) {
				t.Fatalf("expected quota failure for losers, got %v", err)
			}
		}

		_, err := repo.DeductCredits(ctx, "uid-contended", cost, profile)
		var insufficient *repositories.InsufficientCreditsError
		if !errors.As(err, &insufficient) {
			t.Fatalf("expected drained balance, got %v", err)
		}
		if insufficient.Available != 0 {
			t.Fatalf("expected zero balance after drain, got %d", insufficient.Available)
		}
	})

	t.Run("refund restores balance", func(t *testing.T) {
		if _, err := repo.DeductCredits(ctx, "uid-refund", 4, profile); err != nil {
			t.Fatalf("deduct: %v", err)
		}
		if err := repo.RefundCredits(ctx, "uid-refund", 4); err != nil {
			t.Fatalf("refund: %v", err)
		}
		account, err := repo.DeductCredits(ctx, "uid-refund", 1, profile)
		if err != nil {
			t.Fatalf("deduct after refund: %v", err)
		}
		if account.Credits != 9 || account.CreditsUsed != 1 {
			t.Fatalf("expected restored balance, got %+v", account)
		}
	})

	t.Run("brand context falls back through typed not found", func(t *testing.T) {
		_, err := repo.GetBrandContext(ctx, "uid-nobody")
		var repoErr *pfirestore.Error
		if !errors.As(err, &repoErr) || !repoErr.IsNotFound() {
			t.Fatalf("expected not found error, got %v", err)
		}
	})
}

func freePort(t *testing.T) int {
	t.Helper()
	addr, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("unable to allocate port: %v", err)
	}
	defer addr.Close()
	return addr.Addr().(*net.TCPAddr).Port
}

func startFirestoreEmulator(t *testing.T, port int) string {
	t.Helper()
	args := []string{
		"run", "-d", "--rm",
		"-p", fmt.Sprintf("%d:8080", port),
		firestoreEmulatorImage,
		"gcloud", "beta", "emulators", "firestore", "start",
		"--host-port=0.0.0.0:8080",
		"--quiet",
	}

	cmd := exec.Command("docker", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("failed to start firestore emulator: %v - %s", err, string(out))
	}
	id := strings.TrimSpace(string(out))
	if id == "" {
		t.Fatalf("docker returned empty container id")
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}

func ensureDockerDaemon(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, "docker", "info")
	if err := cmd.Run(); err != nil {
		t.Fatalf("docker daemon not available: %v", err)
	}
}

func stopContainer(id string) {
	if id == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, "docker", "stop", id)
	_ = cmd.Run()
}

func waitForEndpoint(t *testing.T, endpoint string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", endpoint, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	t.Fatalf("firestore emulator at %s did not become ready within %s", endpoint, timeout)
}

const firestoreEmulatorImage = "gcr.io/google.com/cloudsdktool/cloud-sdk:emulators"
