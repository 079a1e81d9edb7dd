package cli

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	consul "github.com/hashicorp/consul/api"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/vx-labs/sync-fabric/network"
	"github.com/vx-labs/sync-fabric/syncer/syncpb"
)

// FlagNameSync is the network.RegisterFlagsForService name used for the
// StartSync listener's bind/advertise flags.
const FlagNameSync = "sync"

// AddSyncFlags registers the flags common to both the leader and
// follower roles: the listener's own bind/advertise address, whether to
// run as a follower, and how a follower finds the leader to dial.
func AddSyncFlags(root *cobra.Command, config *viper.Viper) {
	root.Flags().BoolP("follower", "", false, "run as a follower instead of the leader")
	config.BindPFlag("follower", root.Flags().Lookup("follower"))

	root.Flags().StringP("leader-address", "", "", "leader StartSync address to dial when running as a follower")
	config.BindPFlag("leader-address", root.Flags().Lookup("leader-address"))

	root.Flags().StringP("consul-service", "", "", "discover the leader address via this consul service name instead of --leader-address")
	config.BindPFlag("consul-service", root.Flags().Lookup("consul-service"))

	network.RegisterFlagsForService(root, config, FlagNameSync, 3500)
}

// Bootstrap constructs the process logger, tagged with the local node
// id, the same way across every binary in this module. ENABLE_PRETTY_LOG
// switches to the human-readable development encoder.
func Bootstrap(nodeID string) (*zap.Logger, error) {
	fields := []zap.Field{zap.String("node_id", nodeID)}
	if os.Getenv("ENABLE_PRETTY_LOG") == "true" {
		return zap.NewDevelopment(zap.Fields(fields...))
	}
	return zap.NewProduction(zap.Fields(fields...))
}

// DiscoverLeaderAddress resolves the address a follower should dial. If
// --leader-address is set it is used verbatim; otherwise --consul-service
// is looked up against the Consul health API and the first healthy
// instance is used. At least one of the two must be set; when both are,
// --leader-address wins.
func DiscoverLeaderAddress(config *viper.Viper, logger *zap.Logger) (string, error) {
	if addr := config.GetString("leader-address"); addr != "" {
		return addr, nil
	}
	service := config.GetString("consul-service")
	if service == "" {
		return "", fmt.Errorf("cli: either --leader-address or --consul-service must be set for a follower")
	}
	consulConfig := consul.DefaultConfig()
	consulConfig.HttpClient = http.DefaultClient
	api, err := consul.NewClient(consulConfig)
	if err != nil {
		return "", err
	}
	services, _, err := api.Health().Service(service, "", true, &consul.QueryOptions{WaitTime: 15 * time.Second})
	if err != nil {
		return "", err
	}
	if len(services) == 0 {
		return "", fmt.Errorf("cli: no healthy %q instance registered in consul", service)
	}
	entry := services[0]
	addr := fmt.Sprintf("%s:%d", entry.Service.Address, entry.Service.Port)
	logger.Info("discovered leader via consul",
		zap.String("consul_service", service),
		zap.String("leader_address", addr))
	return addr, nil
}

// ServeHTTPHealth exposes /metrics (the global prometheus registry, fed
// by the grpc_prometheus interceptors wired in network.GRPCServerOptions),
// /health (backed by health, e.g. Engine.Health), /debug/syncer (the store
// dump returned by dump, e.g. Engine.Dump, rendered as JSON), and
// /debug/syncer.pb (the same dump, framed as gogo-protobuf-encoded
// SyncMessageBatch values for syncctl dump --format=pb) on bindAddress. It
// blocks and is meant to run in its own goroutine.
func ServeHTTPHealth(logger *zap.Logger, bindAddress string, health func() string, dump func() map[string][]*syncpb.SyncMessage) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		switch health() {
		case "warning":
			w.WriteHeader(http.StatusTooManyRequests)
		case "critical":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusOK)
		}
	})
	mux.HandleFunc("/debug/syncer", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(dump()); err != nil {
			logger.Warn("failed to encode syncer dump", zap.Error(err))
		}
	})
	mux.HandleFunc("/debug/syncer.pb", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		if err := writeDumpFrames(w, dump()); err != nil {
			logger.Warn("failed to encode syncer dump", zap.Error(err))
		}
	})
	if err := http.ListenAndServe(bindAddress, mux); err != nil {
		logger.Error("failed to run healthcheck endpoint", zap.Error(err))
	}
}

// writeDumpFrames writes one frame per peer bucket: a 4-byte length-prefixed
// peer id followed by a 4-byte length-prefixed SyncMessageBatch encoded with
// SyncMessageBatch.MarshalBinary. ReadDumpFrames is the inverse.
func writeDumpFrames(w io.Writer, dump map[string][]*syncpb.SyncMessage) error {
	var lenBuf [4]byte
	for peer, messages := range dump {
		batch, err := (&syncpb.SyncMessageBatch{SyncMessages: messages}).MarshalBinary()
		if err != nil {
			return err
		}
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(peer)))
		if _, err := w.Write(lenBuf[:]); err != nil {
			return err
		}
		if _, err := io.WriteString(w, peer); err != nil {
			return err
		}
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(batch)))
		if _, err := w.Write(lenBuf[:]); err != nil {
			return err
		}
		if _, err := w.Write(batch); err != nil {
			return err
		}
	}
	return nil
}

// ReadDumpFrames is the client-side counterpart to writeDumpFrames, used by
// syncctl dump --format=pb: it reads frames until EOF and decodes each
// batch with SyncMessageBatch.UnmarshalBinary.
func ReadDumpFrames(r io.Reader) (map[string][]*syncpb.SyncMessage, error) {
	out := map[string][]*syncpb.SyncMessage{}
	var lenBuf [4]byte
	for {
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			if err == io.EOF {
				return out, nil
			}
			return nil, err
		}
		peer := make([]byte, binary.BigEndian.Uint32(lenBuf[:]))
		if _, err := io.ReadFull(r, peer); err != nil {
			return nil, err
		}
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return nil, err
		}
		payload := make([]byte, binary.BigEndian.Uint32(lenBuf[:]))
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}
		batch := &syncpb.SyncMessageBatch{}
		if err := batch.UnmarshalBinary(payload); err != nil {
			return nil, err
		}
		out[string(peer)] = batch.SyncMessages
	}
}

// WaitForSignal blocks until SIGINT, SIGTERM or SIGQUIT is received, logs
// it, then calls onShutdown before returning.
func WaitForSignal(logger *zap.Logger, onShutdown func()) {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-sigc
	logger.Info("received termination signal")
	onShutdown()
}
