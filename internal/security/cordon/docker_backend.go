package cordon

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

// DockerBackend provisions cordon workers as network-jailed, read-only-
// rootfs Docker containers, optionally under the runsc (gVisor) OCI
// runtime. This is the concrete mechanism behind spec.md §9's abstract
// "isolation slot" and the default Backend for single-host deployments —
// grounded on the teacher's ghostpool.DockerBackend.
type DockerBackend struct {
	Image   string
	Runtime string // "runsc" for gVisor, "" for the default OCI runtime
}

// NewDockerBackend creates a Docker-based cordon backend.
func NewDockerBackend(image, runtime string) *DockerBackend {
	return &DockerBackend{Image: image, Runtime: runtime}
}

func (d *DockerBackend) Name() string {
	if d.Runtime != "" {
		return fmt.Sprintf("docker-local/%s", d.Runtime)
	}
	return "docker-local"
}

func (d *DockerBackend) CreateWorker(ctx context.Context, trust string) (string, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return "", fmt.Errorf("docker client: %w", err)
	}
	defer cli.Close()

	maxMemory, nanoCPUs := resourceCapsForTrust(trust)

	hostConfig := &container.HostConfig{
		NetworkMode:    networkModeForTrust(trust),
		ReadonlyRootfs: true,
		Resources: container.Resources{
			NanoCPUs: nanoCPUs,
			Memory:   maxMemory,
		},
		Tmpfs: map[string]string{
			"/tmp/sandbox": "rw,noexec,nosuid,size=64m",
		},
	}
	if d.Runtime != "" {
		hostConfig.Runtime = d.Runtime
	}

	resp, err := cli.ContainerCreate(ctx, &container.Config{
		Image: d.Image,
		Tty:   false,
		Cmd:   []string{"sleep", "infinity"},
		User:  uidForTrust(trust),
	}, hostConfig, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("create cordon worker: %w", err)
	}
	return resp.ID, nil
}

func (d *DockerBackend) StartWorker(ctx context.Context, workerID string) error {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return err
	}
	defer cli.Close()
	return cli.ContainerStart(ctx, workerID, types.ContainerStartOptions{})
}

func (d *DockerBackend) StopWorker(ctx context.Context, workerID string) error {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return err
	}
	defer cli.Close()
	timeout := 5
	return cli.ContainerStop(ctx, workerID, container.StopOptions{Timeout: &timeout})
}

func (d *DockerBackend) RemoveWorker(ctx context.Context, workerID string) error {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return err
	}
	defer cli.Close()
	return cli.ContainerRemove(ctx, workerID, types.ContainerRemoveOptions{Force: true})
}

func networkModeForTrust(trust string) container.NetworkMode {
	if trust == "high" {
		return "bridge"
	}
	return "none"
}

func resourceCapsForTrust(trust string) (memory int64, nanoCPUs int64) {
	switch trust {
	case "low":
		return 128 * 1024 * 1024, 250_000_000
	case "medium":
		return 512 * 1024 * 1024, 500_000_000
	default:
		return 2 * 1024 * 1024 * 1024, 1_000_000_000
	}
}

func uidForTrust(trust string) string {
	if trust == "low" {
		return "65534" // nobody
	}
	return ""
}
