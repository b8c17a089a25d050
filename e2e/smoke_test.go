//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"skladi/internal/config"
	"skladi/internal/modules/items/types"
	"skladi/internal/mqtt"
)

const repoRootRel = ".."          // relative to ./e2e
const mainPkgRel = "./cmd/server" // server main package

const mqttPort = nat.Port("1883/tcp")

func TestSmoke_IngestAndList(t *testing.T) {
	repoRoot := repoRootPath(t)
	broker, port := startMosquitto(t)

	dataDir := t.TempDir()
	staticDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("<h1>skladi</h1>"), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}

	bin := buildBinary(t, repoRoot)
	addr := pickFreeAddr(t)

	cmd := exec.Command(bin)
	cmd.Dir = t.TempDir()
	cmd.Env = append(os.Environ(),
		"APP_ENV=dev",
		"LOG_LEVEL=info",
		"HTTP_ADDR="+addr,
		"DATA_DIR="+dataDir,
		"STATIC_DIR="+staticDir,
		"STORAGE_BACKEND=file",
		"MQTT_BROKER="+broker,
		"MQTT_PORT="+strconv.Itoa(port),
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	})

	client := &http.Client{Timeout: 2 * time.Second}
	base := "http://" + addr

	waitFor(t, 15*time.Second, "server healthy with mqtt connected", func() bool {
		var body map[string]string
		status, err := getJSON(client, base+"/healthz", &body)
		return err == nil && status == http.StatusOK && body["mqtt"] == mqtt.StatusConnected
	})

	// HTTP ingest
	resp := postJSON(t, client, http.MethodPost, base+"/sensor-data", `{"id":"s1","value":5}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /sensor-data status=%d want=%d", resp.StatusCode, http.StatusOK)
	}

	// MQTT ingest
	publisher := mqtt.NewPublisher(config.MQTTConfig{
		Broker:   broker,
		Port:     port,
		ClientID: "skladi-e2e",
	}, slog.Default())
	connectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := publisher.Connect(connectCtx); err != nil {
		t.Fatalf("publisher connect: %v", err)
	}
	t.Cleanup(publisher.Close)
	if err := publisher.Send(connectCtx, "s2", "9"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	// Config update
	resp = postJSON(t, client, http.MethodPut, base+"/items/s1", `{"ime":"Vijaki"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT /items/s1 status=%d want=%d", resp.StatusCode, http.StatusOK)
	}

	var items []types.ItemSummary
	waitFor(t, 10*time.Second, "both items listed", func() bool {
		items = nil
		status, err := getJSON(client, base+"/items", &items)
		return err == nil && status == http.StatusOK && len(items) == 2
	})

	byID := map[string]types.ItemSummary{}
	for _, it := range items {
		byID[it.ID] = it
	}
	if got := byID["s1"]; got.Kolicina != "5" || got.Ime != "Vijaki" || got.Lokacija != "L s1" {
		t.Fatalf("s1 = %+v", got)
	}
	if got := byID["s2"]; got.Kolicina != "9" || got.Ime != "Izdelek s2" {
		t.Fatalf("s2 = %+v", got)
	}
	if _, err := os.Stat(filepath.Join(dataDir, "s2.txt")); err != nil {
		t.Fatalf("s2.txt not written: %v", err)
	}

	indexResp, err := client.Get(base + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	index, _ := io.ReadAll(indexResp.Body)
	_ = indexResp.Body.Close()
	if indexResp.StatusCode != http.StatusOK || string(index) != "<h1>skladi</h1>" {
		t.Fatalf("GET / status=%d body=%q", indexResp.StatusCode, index)
	}

	stopServer(t, cmd)
}

func startMosquitto(t *testing.T) (string, int) {
	t.Helper()

	ctx := context.Background()

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2",
		ExposedPorts: []string{string(mqttPort)},
		// The stock config only listens on localhost inside the container.
		Cmd:        []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
		WaitingFor: wait.ForListeningPort(mqttPort).WithStartupTimeout(30 * time.Second),
	}

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start mosquitto container: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Terminate(ctx)
	})

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("mosquitto host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, mqttPort)
	if err != nil {
		t.Fatalf("mosquitto port: %v", err)
	}
	return host, mapped.Int()
}

func repoRootPath(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	repo := filepath.Clean(filepath.Join(wd, repoRootRel))
	if _, err := os.Stat(filepath.Join(repo, "go.mod")); err != nil {
		t.Fatalf("repo root %q does not contain go.mod: %v", repo, err)
	}

	return repo
}

func buildBinary(t *testing.T, repoRoot string) string {
	t.Helper()

	out := filepath.Join(t.TempDir(), "skladi-server")

	build := exec.Command("go", "build", "-o", out, mainPkgRel)
	build.Dir = repoRoot
	build.Env = os.Environ()

	b, err := build.CombinedOutput()
	if err != nil {
		t.Fatalf("go build failed: %v\n%s", err, string(b))
	}

	return out
}

func pickFreeAddr(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen :0: %v", err)
	}
	defer ln.Close()

	return ln.Addr().String()
}

func getJSON(client *http.Client, url string, out any) (int, error) {
	resp, err := client.Get(url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, json.NewDecoder(resp.Body).Decode(out)
}

func postJSON(t *testing.T, client *http.Client, method, url, body string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, url, bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return resp
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("timed out after %s waiting for %s", timeout, what)
}

func stopServer(t *testing.T, cmd *exec.Cmd) {
	t.Helper()

	_ = cmd.Process.Signal(syscall.SIGTERM)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		t.Fatalf("server did not exit in time")
	case err := <-done:
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				t.Fatalf("server exited non-zero: %v", err)
			}
			t.Fatalf("server wait error: %v", err)
		}
	}
}
