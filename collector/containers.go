package collector

import (
	"context"
	"strings"

	"taskmand/models"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

// collectContainers lists all containers (running + stopped). Best
// effort: any Docker failure yields nil rather than failing the capture.
func collectContainers(ctx context.Context) []models.ContainerRecord {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil
	}
	defer cli.Close()

	containers, err := cli.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil
	}

	result := make([]models.ContainerRecord, 0, len(containers))
	for _, c := range containers {
		name := ""
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}

		id := c.ID
		if len(id) > 12 {
			id = id[:12] // Short ID
		}

		result = append(result, models.ContainerRecord{
			ID:      id,
			Name:    name,
			Image:   c.Image,
			State:   c.State,
			Status:  c.Status,
			Created: c.Created,
		})
	}

	return result
}
