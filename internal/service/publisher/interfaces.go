package publisher

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrSinkWrite marks a failure to append the post to the data sink. The
	// agent is never launched after it.
	ErrSinkWrite = errors.New("failed to write to sink")
	// ErrAgentLaunch marks a failure to trigger the automation agent after the
	// sink write succeeded.
	ErrAgentLaunch = errors.New("failed to launch agent")
)

// PublishContent represents the content to be published
type PublishContent struct {
	ItemID   uint              `json:"item_id"`
	Title    string            `json:"title"`
	Content  string            `json:"content"`
	Persona  string            `json:"persona"`
	Industry string            `json:"industry"`
	QueuedAt time.Time         `json:"queued_at"`
	Metadata map[string]string `json:"metadata"`
}

// PublishResult represents the result of a publish operation
type PublishResult struct {
	ContainerID string    `json:"container_id"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// LaunchOptions are passed through to the automation agent.
type LaunchOptions struct {
	ManualLaunch bool
	SaveArgument bool
}

// LaunchResult is what the agent hands back on launch. PostURL is usually
// empty: the agent resolves it later, out of band.
type LaunchResult struct {
	ContainerID string
	PostURL     string
}

// Sink is an append-only store the automation agent reads posts from.
type Sink interface {
	Name() string
	AppendPost(ctx context.Context, content PublishContent) error
}

// Agent launches a stored automation job.
type Agent interface {
	Name() string
	LaunchAgent(ctx context.Context, agentID string, args map[string]any, opts LaunchOptions) (*LaunchResult, error)
}
