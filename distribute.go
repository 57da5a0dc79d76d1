// SPDX-License-Identifier: GPL-3.0-or-later

package dpcp

import (
	"context"
	"errors"
	"log/slog"
)

// SetChainConfig stores the chain config the next [Supervisor.DeployChain]
// distributes.
func (s *Supervisor) SetChainConfig(config ChainConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chainConfig = config
}

// DeployChain distributes the current chain config.
//
// A fresh chain ID is allocated; stages are processed in declared order.
// Each local stage materializes one node bound to the stage's first
// service, with the following stage's first service as its hand-off
// target; processors are installed afterwards via
// [Supervisor.AddProcessors]. If any remote stage exists, a setup
// broadcast carrying the location-stripped remote stages is handed to the
// broadcast-setup callback.
//
// Empty stages are skipped with a warning and never abort the chain.
// Additional service entries beyond the first produce a warning. A
// broadcast failure is logged and returned as [*BroadcastFailedError]
// alongside the deployment: already-created local nodes are not rolled
// back.
func (s *Supervisor) DeployChain(ctx context.Context) (*ChainDeployment, error) {
	s.seal()
	s.mu.Lock()
	config := s.chainConfig
	s.mu.Unlock()

	chainID := NewChainID(s.uid, s.timeNow)
	deployment := &ChainDeployment{ChainID: chainID, NodeIDs: make([]string, len(config))}
	s.logger.Info(
		"chainDeployStart",
		slog.String("chainId", chainID),
		slog.Int("stages", len(config)),
		slog.Time("t", s.timeNow()),
	)

	var remoteStages []StageConfig
	for index, stage := range config {
		if len(stage.Services) <= 0 {
			s.logger.Warn("chainStageEmpty", slog.String("chainId", chainID), slog.Int("stageIndex", index))
			continue
		}
		if len(stage.Services) > 1 {
			s.logger.Warn(
				"chainStageFanOutIgnored",
				slog.String("chainId", chainID),
				slog.Int("extraServices", len(stage.Services)-1),
				slog.Int("stageIndex", index),
			)
		}
		if stage.Location == LocationRemote {
			remoteStages = append(remoteStages, StageConfig{Services: stage.Services})
			continue
		}
		primary := stage.Services[0]
		node := s.createNode(chainID, nil)
		s.bind(chainID, primary.TargetID, node.ID())
		if next := firstServiceAfter(config, index); next != nil {
			node.SetNextTarget(next)
		}
		deployment.NodeIDs[index] = node.ID()
	}

	if len(remoteStages) > 0 {
		if err := s.broadcastChainSetup(ctx, chainID, remoteStages); err != nil {
			broadcastErr := &BroadcastFailedError{ChainID: chainID, Cause: err}
			s.logger.Warn("chainBroadcastFailed", slog.String("chainId", chainID), slog.Any("err", err))
			return deployment, broadcastErr
		}
	}
	return deployment, nil
}

// AddProcessors extends the pipeline of a previously created node.
func (s *Supervisor) AddProcessors(nodeID string, procs ...Processor) error {
	node, err := s.lookup(nodeID)
	if err != nil {
		return err
	}
	return node.AppendProcessors(procs...)
}

// MaterializeStage creates one node per service entry of a broadcast
// stage, binding each to the chain and installing the pipeline the
// registry holds for its target. Used by the connector setup ingress.
//
// The pipelines argument may be nil, in which case nodes start with an
// empty pipeline.
func (s *Supervisor) MaterializeStage(chainID string, stage StageConfig, pipelines *ServiceRegistry) []string {
	nodeIDs := make([]string, 0, len(stage.Services))
	for _, svc := range stage.Services {
		node := s.createNode(chainID, nil)
		s.bind(chainID, svc.TargetID, node.ID())
		if pipelines != nil {
			if procs, found := pipelines.Pipeline(svc.TargetID); found {
				node.AppendProcessors(procs...)
			}
		}
		nodeIDs = append(nodeIDs, node.ID())
	}
	return nodeIDs
}

// broadcastChainSetup hands the setup broadcast to the configured callback.
func (s *Supervisor) broadcastChainSetup(ctx context.Context, chainID string, stages []StageConfig) error {
	s.cbmu.Lock()
	broadcastSetup := s.broadcastSetup
	s.cbmu.Unlock()
	if broadcastSetup == nil {
		return errors.New("dpcp: no broadcast transport configured")
	}
	msg := BroadcastSetupMessage{
		Signal:         SignalNodeCreate,
		Chain:          ChainDescriptor{ID: chainID, Config: stages},
		MonitoringHost: s.monitoringHost,
	}
	_, err := broadcastSetup.Call(ctx, msg)
	return err
}

// firstServiceAfter returns the first service of the next non-empty stage
// following index, nil when the stage is terminal.
func firstServiceAfter(config ChainConfig, index int) *ServiceRef {
	for _, stage := range config[index+1:] {
		if len(stage.Services) > 0 {
			ref := stage.Services[0]
			return &ref
		}
	}
	return nil
}
