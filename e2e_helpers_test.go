//go:build !ci

// Browser test helpers: a headless Chrome in Docker driven by chromedp.

package tinkerpen_test

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
)

const (
	chromeImage           = "chromedp/headless-shell:stable"
	chromeContainerPrefix = "chrome-e2e-tinkerpen-"
	chromeStartTimeout    = 60 * time.Second
)

// startChrome runs headless Chrome in Docker and returns a chromedp context
// bounded by timeout. The container and contexts are released on test
// cleanup. The test is skipped when Docker is unavailable.
func startChrome(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()

	if err := exec.Command("docker", "version").Run(); err != nil {
		t.Skip("Docker not available, skipping browser test")
	}

	port, err := freePort()
	if err != nil {
		t.Fatalf("allocate Chrome port: %v", err)
	}
	name := fmt.Sprintf("%s%d", chromeContainerPrefix, port)
	removeContainer(name)
	pullChromeImage(t)

	// With --network host Chrome listens on the host port directly. Docker on
	// macOS runs in a VM where host networking exposes nothing, so the port
	// is mapped onto the image's default 9222 instead.
	args := []string{"run", "-d", "--rm", "--memory", "512m", "--cpus", "0.5", "--name", name}
	if runtime.GOOS == "linux" {
		args = append(args, "--network", "host", chromeImage, fmt.Sprintf("--remote-debugging-port=%d", port))
	} else {
		args = append(args, "-p", fmt.Sprintf("%d:9222", port), chromeImage)
	}
	if out, err := exec.Command("docker", args...).CombinedOutput(); err != nil {
		t.Fatalf("start Chrome container: %v\n%s", err, out)
	}
	t.Cleanup(func() { removeContainer(name) })

	chromeURL := fmt.Sprintf("http://localhost:%d", port)
	if err := pollHTTP(chromeURL+"/json/version", chromeStartTimeout); err != nil {
		if logs, lerr := exec.Command("docker", "logs", "--tail", "50", name).CombinedOutput(); lerr == nil {
			t.Logf("Chrome container logs:\n%s", logs)
		}
		t.Fatalf("Chrome not ready: %v", err)
	}

	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.Background(), chromeURL)
	ctx, ctxCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(t.Logf))
	ctx, timeoutCancel := context.WithTimeout(ctx, timeout)
	t.Cleanup(func() {
		timeoutCancel()
		ctxCancel()
		allocCancel()
	})
	return ctx
}

func pullChromeImage(t *testing.T) {
	t.Helper()
	if exec.Command("docker", "image", "inspect", chromeImage).Run() == nil {
		return
	}

	t.Logf("Pulling %s...", chromeImage)
	ctx, cancel := context.WithTimeout(context.Background(), chromeStartTimeout)
	defer cancel()
	if out, err := exec.CommandContext(ctx, "docker", "pull", chromeImage).CombinedOutput(); err != nil {
		t.Fatalf("pull %s: %v\n%s", chromeImage, err, out)
	}
}

// removeContainer force-removes a container; a missing one is not an error.
func removeContainer(name string) {
	_ = exec.Command("docker", "rm", "-f", name).Run()
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// pollHTTP waits until url answers any HTTP response.
func pollHTTP(url string, timeout time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(timeout)
	for {
		resp, err := client.Get(url)
		if err == nil {
			resp.Body.Close()
			return nil
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(250 * time.Millisecond)
	}
}

// browserURL rewrites an httptest URL so the containerized Chrome can reach
// it: localhost under host networking, host.docker.internal elsewhere.
func browserURL(serverURL string) string {
	host := "localhost"
	if runtime.GOOS != "linux" {
		host = "host.docker.internal"
	}
	return strings.NewReplacer("127.0.0.1", host, "[::1]", host).Replace(serverURL)
}
