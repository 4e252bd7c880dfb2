package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/jpalmerr/mcpulse"
	"github.com/spf13/cobra"
)

var pingCmd = &cobra.Command{
	Use:   "ping ADDRESS [ADDRESS...]",
	Short: "Probe servers once and print their status",
	Long: `Probe one or more Minecraft servers once and print what they report.

Addresses are host or host:port. Without a port, the protocol's default
is used (25565 for Java, 19132 for Bedrock). An unreachable server is
reported as offline; the command fails only when a probe could not be
carried out.

Example:
  mcpulse ping play.example.com
  mcpulse ping --protocol bedrock be.example.com:19133
  mcpulse ping --json a.example.com b.example.com
  mcpulse ping --no-latency play.example.com`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)

	pingCmd.Flags().StringP("protocol", "p", "java", "status protocol: java or bedrock")
	pingCmd.Flags().Duration("timeout", 0, "probe timeout for java servers (default 5s)")
	pingCmd.Flags().Bool("json", false, "print results as JSON")
	pingCmd.Flags().Bool("no-isolation", false, "run probes inline instead of in isolated goroutines")
	pingCmd.Flags().Bool("no-latency", false, "skip the java ping step that measures latency")
	pingCmd.Flags().Int("concurrency", 10, "maximum probes in flight")
}

// pingReport is one line of ping output.
type pingReport struct {
	Address   string  `json:"address"`
	Protocol  string  `json:"protocol"`
	State     string  `json:"state"`
	Online    int     `json:"online_players"`
	Max       int     `json:"max_players"`
	Version   *string `json:"version,omitempty"`
	MOTD      *string `json:"motd,omitempty"`
	LatencyMS *int64  `json:"latency_ms,omitempty"`
}

func runPing(cmd *cobra.Command, args []string) error {
	protocolName, _ := cmd.Flags().GetString("protocol")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	asJSON, _ := cmd.Flags().GetBool("json")
	noIsolation, _ := cmd.Flags().GetBool("no-isolation")
	noLatency, _ := cmd.Flags().GetBool("no-latency")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	targets, err := buildTargets(protocolName, timeout, args)
	if err != nil {
		return err
	}

	pollerOpts := []mcpulse.Option{
		mcpulse.WithLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
			Level: slog.LevelWarn,
		}))),
	}
	if noLatency {
		pollerOpts = append(pollerOpts, mcpulse.WithoutLatency())
	}

	p, err := mcpulse.New(pollerOpts...)
	if err != nil {
		return err
	}

	opts := []mcpulse.PingOption{mcpulse.WithoutCache()}
	if noIsolation {
		opts = append(opts, mcpulse.WithoutIsolation())
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results, pingErr := p.PingAll(ctx, targets, concurrency, opts...)
	if errors.Is(pingErr, context.Canceled) {
		return pingErr
	}

	reports := newPingReports(targets, results)
	out := cmd.OutOrStdout()
	if asJSON {
		err = writeJSON(out, reports)
	} else {
		err = writeText(out, reports)
	}
	if err != nil {
		return err
	}

	if pingErr != nil {
		return fmt.Errorf("could not check status: %w", pingErr)
	}
	return nil
}

// buildTargets parses every address for the named protocol. A zero timeout
// keeps the protocol default.
func buildTargets(protocolName string, timeout time.Duration, addrs []string) ([]mcpulse.Target, error) {
	p, err := mcpulse.ParseProtocol(protocolName)
	if err != nil {
		return nil, err
	}

	var opts []mcpulse.TargetOption
	if timeout != 0 {
		opts = append(opts, mcpulse.WithTimeout(timeout))
	}

	targets := make([]mcpulse.Target, 0, len(addrs))
	for _, a := range addrs {
		t, err := mcpulse.ParseTarget(p, a, opts...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a, err)
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// newPingReports pairs targets with their results. A target whose probe
// failed has a zero result and is reported as "unknown".
func newPingReports(targets []mcpulse.Target, results []mcpulse.StatusResult) []pingReport {
	reports := make([]pingReport, len(targets))
	for i, t := range targets {
		r := results[i]
		rep := pingReport{
			Address:  t.Address(),
			Protocol: t.Protocol().String(),
			State:    r.State.String(),
			Online:   r.OnlinePlayers,
			Max:      r.MaxPlayers,
			Version:  r.Version,
			MOTD:     r.MOTD,
		}
		if rep.State == "" {
			rep.State = "unknown"
		}
		if ms, ok := r.LatencyMillis(); ok {
			rep.LatencyMS = &ms
		}
		reports[i] = rep
	}
	return reports
}

func writeJSON(w io.Writer, reports []pingReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}

func writeText(w io.Writer, reports []pingReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tPROTOCOL\tSTATE\tPLAYERS\tVERSION\tLATENCY\tMOTD")
	for _, r := range reports {
		players := "-"
		if r.State == mcpulse.StateOnline.String() {
			players = fmt.Sprintf("%d/%d", r.Online, r.Max)
		}
		latency := "-"
		if r.LatencyMS != nil {
			latency = fmt.Sprintf("%dms", *r.LatencyMS)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Address, r.Protocol, r.State, players, orDash(r.Version), latency, orDash(r.MOTD))
	}
	return tw.Flush()
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
