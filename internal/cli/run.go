package cli

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tutu-network/swimcluster/internal/api"
	"github.com/tutu-network/swimcluster/internal/clock"
	"github.com/tutu-network/swimcluster/internal/config"
	"github.com/tutu-network/swimcluster/internal/identity"
	"github.com/tutu-network/swimcluster/internal/membership"
	"github.com/tutu-network/swimcluster/internal/observability"
	"github.com/tutu-network/swimcluster/internal/protocol"
	"github.com/tutu-network/swimcluster/internal/reactor"
	"github.com/tutu-network/swimcluster/internal/snapshot"
	"github.com/tutu-network/swimcluster/internal/transport"
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("config", "c", "", "path to a TOML config file (defaults applied if omitted)")
	runCmd.Flags().StringSliceP("seed", "s", nil, "seed host:port to bootstrap from; may be repeated")
	runCmd.Flags().String("api-addr", "", "if set, serve /health, /members, /leave, and optionally /metrics on this address")
	runCmd.Flags().Bool("metrics", false, "expose /metrics when --api-addr is set")
	runCmd.Flags().String("identity-file", "", "file storing this node's host_key across restarts (default: alongside --config, or ./swimnode.id)")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a cluster member and run until interrupted",
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	seeds, _ := cmd.Flags().GetStringSlice("seed")
	apiAddr, _ := cmd.Flags().GetString("api-addr")
	metricsEnabled, _ := cmd.Flags().GetBool("metrics")
	identityFile, _ := cmd.Flags().GetString("identity-file")

	cfg := config.DefaultConfig()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	resolved, err := cfg.Resolve()
	if err != nil {
		return fmt.Errorf("resolve config: %w", err)
	}

	logger := observability.New(observability.ParseLevel(resolved.LogLevel))

	if identityFile == "" {
		identityFile = defaultIdentityFile(configPath)
	}
	hostKey, err := loadOrMintHostKey(identityFile)
	if err != nil {
		return fmt.Errorf("load host_key: %w", err)
	}

	tr, err := transport.Listen(resolved.ListenAddr, resolved.NetworkMTU)
	if err != nil {
		return fmt.Errorf("listen %s: %w", resolved.ListenAddr, err)
	}
	defer tr.Close()

	var store *snapshot.Store
	if resolved.SnapshotEnabled {
		store, err = snapshot.Open(resolved.SnapshotPath)
		if err != nil {
			return fmt.Errorf("open snapshot: %w", err)
		}
		defer store.Close()
	}

	self := membership.Member{HostKey: hostKey, State: membership.Alive}
	cluster := reactor.Start(self, resolved, tr, clock.Real{}, protocol.NewJSONCodec(), logger)

	for _, s := range seeds {
		addr, err := tr.ResolveAddr(s)
		if err != nil {
			logger.Warnf("skipping unresolvable seed %q: %v", s, err)
			continue
		}
		cluster.AddSeed(addr)
	}

	if store != nil {
		prior, err := store.Load(tr.ResolveAddr)
		if err != nil {
			logger.Warnf("snapshot load failed, starting with no prior seeds: %v", err)
		}
		for _, m := range prior {
			if m.Address != nil {
				cluster.AddSeed(m.Address)
			}
		}
	}

	if apiAddr != "" {
		srv := api.NewServer(cluster)
		if metricsEnabled {
			srv.EnableMetrics()
		}
		go func() {
			if err := http.ListenAndServe(apiAddr, srv.Handler()); err != nil {
				logger.Errorf("api server on %s stopped: %v", apiAddr, err)
			}
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range cluster.Events() {
			logger.Infof("%s: %s", ev.Kind, ev.Member.HostKey)
			if store != nil {
				if err := store.Save(cluster.Members()); err != nil {
					logger.Warnf("snapshot save failed: %v", err)
				}
			}
		}
	}()

	<-sig
	cluster.Leave()
	cluster.Drop()
	<-done
	return nil
}

func defaultIdentityFile(configPath string) string {
	if configPath != "" {
		return filepath.Join(filepath.Dir(configPath), "swimnode.id")
	}
	return "swimnode.id"
}

// loadOrMintHostKey reads a previously-persisted host_key, or mints and
// persists a fresh one (spec §3: host_key is "stable across restarts").
func loadOrMintHostKey(path string) (identity.HostKey, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return identity.Parse(strings.TrimSpace(string(data)))
	}
	if !os.IsNotExist(err) {
		return identity.HostKey{}, err
	}
	key := identity.UUIDGenerator{}.New()
	if err := os.WriteFile(path, []byte(key.String()), 0o600); err != nil {
		return identity.HostKey{}, fmt.Errorf("persist host_key: %w", err)
	}
	return key, nil
}
