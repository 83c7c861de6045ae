//go:build integration
// +build integration

package integration

import (
	"context"
	"os"
	"os/exec"
	"testing"
)

func restartOrderContainer(t *testing.T, ctx context.Context) {
	t.Helper()

	args := []string{"compose"}
	if f := os.Getenv("E2E_COMPOSE_FILE"); f != "" {
		args = append(args, "-f", f)
	}
	args = append(args, "restart", getenv("E2E_ORDER_SERVICE", "order"))

	out, err := exec.CommandContext(ctx, "docker", args...).CombinedOutput()
	if err != nil {
		t.Fatalf("docker compose restart failed: %v\n%s", err, string(out))
	}
}
