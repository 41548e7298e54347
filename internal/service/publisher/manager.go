package publisher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Manager writes a post to the sink and then launches the agent that picks it
// up. The order matters: the agent reads from the sink.
type Manager struct {
	sink   Sink
	agent  Agent
	logger *zap.Logger
	now    func() time.Time
}

func NewPublishManager(sink Sink, agent Agent, logger *zap.Logger) *Manager {
	return &Manager{
		sink:   sink,
		agent:  agent,
		logger: logger,
		now:    time.Now,
	}
}

// Publish appends content to the sink and launches agentID with an empty
// argument set; the agent runs with its own stored configuration.
func (m *Manager) Publish(ctx context.Context, content PublishContent, agentID string) (*PublishResult, error) {
	if m.sink == nil {
		return nil, fmt.Errorf("%w: no sink configured", ErrSinkWrite)
	}
	if m.agent == nil {
		return nil, fmt.Errorf("%w: no agent configured", ErrAgentLaunch)
	}

	if content.QueuedAt.IsZero() {
		content.QueuedAt = m.now().UTC()
	}

	if err := m.sink.AppendPost(ctx, content); err != nil {
		m.logger.Error("Failed to append post to sink",
			zap.String("sink", m.sink.Name()),
			zap.Uint("item_id", content.ItemID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %w", ErrSinkWrite, m.sink.Name(), err)
	}

	launch, err := m.agent.LaunchAgent(ctx, agentID, map[string]any{}, LaunchOptions{ManualLaunch: true})
	if err != nil {
		m.logger.Error("Failed to launch agent",
			zap.String("agent", m.agent.Name()),
			zap.String("agent_id", agentID),
			zap.Uint("item_id", content.ItemID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %w", ErrAgentLaunch, m.agent.Name(), err)
	}
	if launch == nil || launch.ContainerID == "" {
		return nil, fmt.Errorf("%w: %s: %w", ErrAgentLaunch, m.agent.Name(), errors.New("no container id returned"))
	}

	m.logger.Info("Publishing completed",
		zap.Uint("item_id", content.ItemID),
		zap.String("sink", m.sink.Name()),
		zap.String("agent", m.agent.Name()),
		zap.String("container_id", launch.ContainerID))

	return &PublishResult{
		ContainerID: launch.ContainerID,
		URL:         launch.PostURL,
		PublishedAt: m.now().UTC(),
	}, nil
}
