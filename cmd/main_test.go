package main

import (
	"chat-presence/internal"
	"chat-presence/mocks"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestSupervise_Adds_Every_Worker_Then_Runs(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sup := mocks.NewMockISupervisor(ctrl)
	sweeper := mocks.NewMockWorker(ctrl)
	httpWorker := mocks.NewMockWorker(ctrl)
	ctx := context.Background()

	// Given both workers are registered before the supervisor runs
	gomock.InOrder(
		sup.EXPECT().Add(sweeper, httpWorker).Return(sup).Times(1),
		sup.EXPECT().Run(ctx).Times(1),
	)

	// When the server is supervised
	supervise(ctx, sup, sweeper, httpWorker)
}

func TestBuildBadgerOpts(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	inMemory := buildBadgerOpts(ctx, internal.Config{BadgerInMemory: true, BadgerFilepath: "./data/badger"}, slog.Default())
	req.True(inMemory.InMemory)
	req.Empty(inMemory.Dir)

	onDisk := buildBadgerOpts(ctx, internal.Config{BadgerFilepath: "./data/badger"}, slog.Default())
	req.False(onDisk.InMemory)
	req.Equal("./data/badger", onDisk.Dir)
}
