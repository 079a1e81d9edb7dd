package main

import (
	"context"
	"fmt"
	"net"
	"os"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/vx-labs/sync-fabric/cli"
	"github.com/vx-labs/sync-fabric/network"
	"github.com/vx-labs/sync-fabric/syncer"
	"github.com/vx-labs/sync-fabric/syncer/service"
	"github.com/vx-labs/sync-fabric/syncer/syncpb"
)

func main() {
	config := viper.New()
	root := &cobra.Command{
		Use:   "syncerd",
		Short: "runs one node of a leader/follower sync fabric cluster",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(config)
		},
	}
	cli.AddSyncFlags(root, config)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(config *viper.Viper) error {
	nodeID := uuid.New().String()
	logger, err := cli.Bootstrap(nodeID)
	if err != nil {
		return err
	}
	defer logger.Sync()

	netConf := network.ConfigurationFromFlags(config, cli.FlagNameSync, "sync")

	engine := syncer.New(nodeID, syncer.WithLogger(logger))
	defer engine.Close()

	registerDemoComponents(engine)

	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", netConf.BindAddress(), netConf.BindPort()))
	if err != nil {
		return err
	}
	grpcServer := grpc.NewServer(network.GRPCServerOptions()...)
	syncpb.RegisterSyncServiceServer(grpcServer, service.New(engine))
	grpc_prometheus.Register(grpcServer)

	go func() {
		logger.Info("listening for followers",
			zap.String("bind_address", listener.Addr().String()),
			zap.String("advertised_address", fmt.Sprintf("%s:%d", netConf.AdvertisedAddress(), netConf.AdvertisedPort())))
		if err := grpcServer.Serve(listener); err != nil {
			logger.Error("grpc server exited", zap.Error(err))
		}
	}()

	go cli.ServeHTTPHealth(logger, "[::]:9000", engine.Health, engine.Dump)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if config.GetBool("follower") {
		leaderAddress, err := cli.DiscoverLeaderAddress(config, logger)
		if err != nil {
			return err
		}
		conn, err := grpc.DialContext(ctx, leaderAddress, network.GRPCClientOptions()...)
		if err != nil {
			return err
		}
		defer conn.Close()
		if err := engine.Follow(ctx, conn); err != nil {
			return err
		}
	}

	cli.WaitForSignal(logger, func() {
		cancel()
		grpcServer.GracefulStop()
	})
	return nil
}

// registerDemoComponents binds a receiver, and no reporter, for each closed
// component variant, logging every accepted update. A real deployment
// wires its resource-view, cluster-membership, node-health and
// actor-table subsystems here instead.
func registerDemoComponents(engine *syncer.Engine) {
	for component := syncpb.ComponentId(0); int(component) < syncpb.ComponentCount; component++ {
		component := component
		engine.Register(component,
			nil,
			syncer.ReceiverFunc(func(msg *syncpb.SyncMessage) {
				engine.Logger().Debug("applied remote update",
					zap.String("component", component.String()),
					zap.String("node_id", msg.NodeId),
					zap.Uint64("version", msg.Version))
			}),
		)
	}
}
