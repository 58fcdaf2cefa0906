package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/tunview/tunview/internal/config"
	"github.com/tunview/tunview/internal/logs"
	"github.com/tunview/tunview/internal/tui"
	"github.com/tunview/tunview/internal/tunnel"
	"github.com/tunview/tunview/pkg/events"
	"github.com/tunview/tunview/pkg/ports"
)

// Version is set at build time.
var Version = "dev"

var (
	configPath string
	verbosity  string
	bufferCap  int

	ovrLocalAddress  string
	ovrLocalPort     int
	ovrRemoteAddress string
	ovrRemotePort    int
	ovrLocalSock     string
	ovrRemoteSock    string
)

var rootCmd = &cobra.Command{
	Use:   "tunview <ssh-host> <target>",
	Short: "Establish an SSH forward tunnel and watch its logs",
	Long: `Tunview establishes an SSH forward tunnel and shows its output in an
interactive dashboard: scroll the logs, search them, and see the tunnel
endpoints highlighted as ssh reports them.

Hosts and targets come from a TOML catalog (default
~/.config/tunview/config.toml, or $TUNVIEW_CONFIG):

  [[ssh_hosts]]
  name = "host.name"          # a valid HostName from your ssh config
  description = "Shown in shell completion."

  [[targets]]
  name = "service-foo"
  local_address = "127.0.0.1"
  local_port = 8080
  remote_address = "127.0.0.1"
  remote_port = 8080
  description = "Shown in shell completion."

Targets may forward a unix socket instead:

  [[targets]]
  name = "docker-sock"
  local_sock = "/tmp/docker.sock"
  remote_sock = "/var/run/docker.sock"

Navigation: arrows/PgUp/PgDn/Home/End scroll, t toggles follow-tail,
/ searches, c copies the local address, q quits.`,
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completeArgs,
	RunE:              runTunnel,
	SilenceUsage:      true,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "Catalog file (default ~/.config/tunview/config.toml)")
	rootCmd.Flags().StringVarP(&verbosity, "verbose", "v", "v", "ssh verbosity: v, vv or vvv")
	rootCmd.Flags().IntVar(&bufferCap, "log-lines", logs.DefaultCapacity, "Number of log lines kept in memory")

	rootCmd.Flags().StringVar(&ovrLocalAddress, "local-address", "", "Local address to listen on (overrides the target)")
	rootCmd.Flags().IntVar(&ovrLocalPort, "local-port", 0, "Local port to listen on (overrides the target)")
	rootCmd.Flags().StringVar(&ovrRemoteAddress, "remote-address", "", "Remote address to forward to (overrides the target)")
	rootCmd.Flags().IntVar(&ovrRemotePort, "remote-port", 0, "Remote port to forward to (overrides the target)")
	rootCmd.Flags().StringVar(&ovrLocalSock, "local-sock", "", "Local unix socket to listen on (overrides the target)")
	rootCmd.Flags().StringVar(&ovrRemoteSock, "remote-sock", "", "Remote unix socket to forward to (overrides the target)")

	rootCmd.Version = Version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func overrides() config.Overrides {
	return config.Overrides{
		LocalAddress:  ovrLocalAddress,
		LocalPort:     ovrLocalPort,
		RemoteAddress: ovrRemoteAddress,
		RemotePort:    ovrRemotePort,
		LocalSock:     ovrLocalSock,
		RemoteSock:    ovrRemoteSock,
		Verbose:       verbosity,
	}
}

func loadCatalog() (*config.Catalog, error) {
	path := configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return config.Load(path)
}

func runTunnel(cmd *cobra.Command, args []string) error {
	catalog, err := loadCatalog()
	if err != nil {
		return err
	}

	spec, err := catalog.Resolve(args[0], args[1], overrides())
	if err != nil {
		return err
	}

	if !spec.IsSocket() {
		if err := ports.CheckBind(spec.LocalAddress, spec.LocalPort); err != nil {
			return err
		}
	}

	lock, err := tunnel.AcquireSessionLock(spec)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	bus := events.NewEventBus()
	defer bus.Shutdown()

	buf := logs.NewBuffer(bufferCap, logs.NewMatcher(spec.Local(), spec.Remote()))

	sup := tunnel.NewSupervisor(spec, bus)
	if err := sup.Start(context.Background()); err != nil {
		return err
	}

	// Pump the supervisor's output into the buffer. The bus notification
	// wakes the dashboard; the buffer itself is the only shared state.
	go func() {
		for line := range sup.Lines() {
			buf.Append(line.Text, bufferSource(line.Source))
			bus.Publish(events.Event{Type: events.LogLine, SessionID: sup.ID})
		}
	}()

	p := tea.NewProgram(tui.NewModel(spec, sup, buf, bus), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		sup.Stop()
		return fmt.Errorf("running dashboard: %w", err)
	}

	return nil
}

func bufferSource(s tunnel.StreamSource) logs.Source {
	switch s {
	case tunnel.StreamStdout:
		return logs.SourceStdout
	case tunnel.StreamStderr:
		return logs.SourceStderr
	default:
		return logs.SourceSystem
	}
}

// completeArgs feeds shell completion from the catalog: the first
// positional argument is an ssh host, the second a target. Candidates
// carry the catalog descriptions.
func completeArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	catalog, err := loadCatalog()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	switch len(args) {
	case 0:
		return catalog.HostCompletions(toComplete), cobra.ShellCompDirectiveNoFileComp
	case 1:
		return catalog.TargetCompletions(toComplete), cobra.ShellCompDirectiveNoFileComp
	default:
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
}
