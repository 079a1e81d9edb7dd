package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vx-labs/sync-fabric/cli"
)

// syncctl is the operator-facing companion to syncerd: it talks to a
// running node's HTTP health/debug endpoints and prints human-readable
// output, the way the teacher's *ctl binaries talked to a broker service
// over gRPC instead. logrus, not zap, carries this binary's output: it is
// a one-shot CLI tool, not a long-running server emitting structured logs.
func main() {
	root := &cobra.Command{
		Use: "syncctl",
	}
	root.PersistentFlags().StringP("endpoint", "e", "http://127.0.0.1:9000", "target node's health/debug HTTP endpoint")
	viper.BindPFlag("endpoint", root.PersistentFlags().Lookup("endpoint"))

	root.AddCommand(healthCommand())
	root.AddCommand(dumpCommand())

	if err := root.Execute(); err != nil {
		logrus.Errorf("%v", err)
		os.Exit(1)
	}
}

func healthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "print the target node's /health status",
		Run: func(cmd *cobra.Command, args []string) {
			resp, err := http.Get(viper.GetString("endpoint") + "/health")
			if err != nil {
				logrus.Errorf("failed to reach node: %v", err)
				os.Exit(1)
			}
			defer resp.Body.Close()
			fmt.Printf("status: %s (http %d)\n", describeStatus(resp.StatusCode), resp.StatusCode)
		},
	}
}

func dumpCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "print the target node's message store via /debug/syncer",
		Run: func(cmd *cobra.Command, args []string) {
			if viper.GetString("format") == "pb" {
				dumpPB()
				return
			}
			dumpJSON()
		},
	}
	cmd.Flags().StringP("format", "f", "json", "dump encoding: json (via /debug/syncer) or pb (via /debug/syncer.pb, gogo-protobuf framed)")
	viper.BindPFlag("format", cmd.Flags().Lookup("format"))
	return cmd
}

func dumpJSON() {
	resp, err := http.Get(viper.GetString("endpoint") + "/debug/syncer")
	if err != nil {
		logrus.Errorf("failed to reach node: %v", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logrus.Errorf("failed to read response: %v", err)
		os.Exit(1)
	}
	var dump map[string][]map[string]interface{}
	if err := json.Unmarshal(body, &dump); err != nil {
		logrus.Errorf("failed to decode response: %v", err)
		os.Exit(1)
	}
	for peer, messages := range dump {
		fmt.Printf("peer %s:\n", peer)
		for _, msg := range messages {
			fmt.Printf("  • node_id=%v component_id=%v version=%v\n", msg["node_id"], msg["component_id"], msg["version"])
		}
	}
}

func dumpPB() {
	resp, err := http.Get(viper.GetString("endpoint") + "/debug/syncer.pb")
	if err != nil {
		logrus.Errorf("failed to reach node: %v", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	dump, err := cli.ReadDumpFrames(resp.Body)
	if err != nil {
		logrus.Errorf("failed to decode response: %v", err)
		os.Exit(1)
	}
	for peer, messages := range dump {
		fmt.Printf("peer %s:\n", peer)
		for _, msg := range messages {
			fmt.Printf("  • node_id=%s component_id=%s version=%d\n", msg.NodeId, msg.ComponentId, msg.Version)
		}
	}
}

func describeStatus(code int) string {
	switch {
	case code == http.StatusOK:
		return "ok"
	case code == http.StatusTooManyRequests:
		return "warning"
	case code >= 500:
		return "critical"
	default:
		return "unknown"
	}
}
