package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/nao1215/portvapt/internal/config"
	applog "github.com/nao1215/portvapt/internal/log"
	"github.com/nao1215/portvapt/internal/model"
	"github.com/nao1215/portvapt/internal/netclient"
	"github.com/nao1215/portvapt/internal/pipeline"
	"github.com/nao1215/portvapt/internal/protocol"
	"github.com/nao1215/portvapt/internal/report"
	"github.com/nao1215/portvapt/internal/scanner"
	"github.com/nao1215/portvapt/internal/services"
	"github.com/nao1215/portvapt/internal/vapt"
	"github.com/nao1215/portvapt/internal/verify"
	"github.com/spf13/cobra"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <host>",
		Short: "Scan a host and assess its open TCP ports",
		Long: `Scan connects to every TCP port of the range on the host, then for each
open port:
- grabs a banner (HTTP, FTP, SMTP, then a generic read)
- resolves the service from the banner or the nmap-services table
- grades the service with heuristic findings and a risk level

Web services are requested over HTTP(S) and checked for missing security
headers.

Examples:
  # Scan the well-known ports
  portvapt scan 192.0.2.10

  # Scan every port with a longer timeout
  portvapt scan -p 1-65535 -t 500ms 192.0.2.10

  # Markdown report written to a file as well
  portvapt scan -o markdown -f report.md 192.0.2.10

  # Compare the open ports with nmap
  portvapt scan --verify 192.0.2.10

  # Go through a SOCKS5 proxy
  portvapt scan --proxy socks5://127.0.0.1:1080 192.0.2.10`,
		Args: cobra.ExactArgs(1),
		RunE: runScanCmd,
	}

	cmd.Flags().StringP("ports", "p", config.DefaultPorts,
		"Port range to scan, START-END")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each connect attempt and probe read or write")
	cmd.Flags().IntP("concurrency", "c", config.DefaultConcurrency,
		"Maximum number of connect attempts in flight")
	cmd.Flags().Bool("banner", true,
		"Grab banners from open ports")

	cmd.Flags().StringP("output", "o", config.DefaultOutput,
		"Report format: text, json or markdown")
	cmd.Flags().StringP("report-file", "f", "",
		"Also write the report to this file (creates directories if needed)")
	cmd.Flags().Bool("verify", false,
		"Compare the open ports against nmap")

	cmd.Flags().StringP("services", "s", "",
		"nmap-services table (default: search, then built-in table)")
	cmd.Flags().Duration("http-timeout", config.DefaultHTTPTimeout,
		"Timeout for the web check request")
	cmd.Flags().Duration("tls-timeout", config.DefaultTLSTimeout,
		"Timeout for the TLS reachability check")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent sent by HTTP probes and web checks")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy for all connections, e.g. socks5://127.0.0.1:1080")

	cmd.Flags().String("config", "",
		"Configuration file path (default: .portvapt.yaml or XDG config dir)")
	cmd.Flags().Bool("no-color", false,
		"Disable colors in the text report")
	cmd.Flags().Bool("log-json", false,
		"Write logs as JSON")
	cmd.Flags().String("log-file", "",
		"Write logs to a rotated file")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, closer, err := applog.New(cmd.ErrOrStderr(), applog.Options{
		Verbose: cfg.Verbose,
		JSON:    cfg.LogJSON,
		File:    cfg.LogFile,
	})
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer closer.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runScan(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from defaults, the config file and the flags
// the user set, in that order.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	if len(args) > 0 {
		cfg.Host = args[0]
	}

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	file, path, err := config.Load(cfg.ConfigFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	if file != nil {
		slog.Debug("using config file", "path", path)
		cfg.Apply(file.SettingsFor(cfg.Host))
	}

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// applyFlags copies every explicitly set flag into cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	return errors.Join(
		changedString(cmd, "ports", &cfg.Ports),
		changedDuration(cmd, "timeout", &cfg.Timeout),
		changedInt(cmd, "concurrency", &cfg.Concurrency),
		changedBool(cmd, "banner", &cfg.Banner),
		changedString(cmd, "output", &cfg.Output),
		changedString(cmd, "report-file", &cfg.ReportFile),
		changedBool(cmd, "verify", &cfg.Verify),
		changedString(cmd, "services", &cfg.ServicesFile),
		changedDuration(cmd, "http-timeout", &cfg.HTTPTimeout),
		changedDuration(cmd, "tls-timeout", &cfg.TLSTimeout),
		changedString(cmd, "user-agent", &cfg.UserAgent),
		changedString(cmd, "proxy", &cfg.Proxy),
		changedBool(cmd, "no-color", &cfg.NoColor),
		changedBool(cmd, "log-json", &cfg.LogJSON),
		changedString(cmd, "log-file", &cfg.LogFile),
	)
}

func changedString(cmd *cobra.Command, name string, dst *string) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func changedDuration(cmd *cobra.Command, name string, dst *time.Duration) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetDuration(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func changedInt(cmd *cobra.Command, name string, dst *int) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetInt(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func changedBool(cmd *cobra.Command, name string, dst *bool) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// runScan executes the scan. The report goes to stdout. Progress goes to
// stdout with the text report and to stderr otherwise, so that JSON and
// Markdown output stay machine-readable.
func runScan(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) error {
	r, err := cfg.PortRange()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	format, err := report.ParseFormat(cfg.Output)
	if err != nil {
		fmt.Fprintf(stderr, "Invalid output mode: %s. Using 'text' instead.\n", cfg.Output)
		logger.Warn("unknown output format", "output", cfg.Output)
		format = report.FormatText
	}

	progress := stdout
	if format != report.FormatText {
		progress = stderr
	}

	table, err := services.Open(cfg.ServicesFile)
	if err != nil {
		return fmt.Errorf("failed to load service table: %w", err)
	}
	logger.Debug("service table loaded", "source", table.Source(), "entries", table.Len())

	client, err := netclient.New(cfg.Proxy, netclient.WithHTTPTimeout(cfg.HTTPTimeout))
	if err != nil {
		return fmt.Errorf("failed to create network client: %w", err)
	}
	if client.Proxied() {
		if status := client.CheckProxy(ctx); status != netclient.ProxyStatusOK {
			return fmt.Errorf("proxy check failed: %s (make sure a SOCKS5 proxy is running at %s)",
				status, client.ProxyAddress())
		}
		logger.Info("proxy connection verified", "address", client.ProxyAddress())
	}

	p := newScanPipeline(cfg, client, table, logger, progress)

	fmt.Fprintf(progress, "Scanning %s ports %s with timeout=%s, concurrency=%d...\n",
		cfg.Host, r, cfg.Timeout, cfg.Concurrency)

	scanReport := model.NewScanReport(cfg.Host, r)
	scanErr := p.Execute(ctx, scanReport)
	if scanErr != nil && !scanReport.Cancelled {
		return scanErr
	}

	if scanReport.Verification != nil {
		printVerification(progress, scanReport.Verification)
	}

	if err := writeReport(cfg, format, stdout, scanReport.Results); err != nil {
		return err
	}

	fmt.Fprintf(progress, "\nScan complete in %.2f seconds.\n", scanReport.Duration.Seconds())

	if scanReport.Cancelled {
		return fmt.Errorf("scan interrupted: %w", scanErr)
	}
	return nil
}

// newScanPipeline wires the scan phases. Every network component shares the
// dialer of client, so a proxy applies to all of them.
func newScanPipeline(cfg *config.Config, client *netclient.Client, table *services.Table, logger *slog.Logger, progress io.Writer) *pipeline.Pipeline {
	dialer := client.Dialer()

	s := scanner.New(
		scanner.WithTimeout(cfg.Timeout),
		scanner.WithConcurrency(cfg.Concurrency),
		scanner.WithDialer(dialer),
		scanner.WithLogger(logger),
		scanner.WithObserver(func(port uint16) {
			fmt.Fprintf(progress, "Port %d is OPEN\n", port)
		}),
	)

	classifier := vapt.New(table,
		vapt.WithHTTPClient(client.NewHTTPClient()),
		vapt.WithDialer(dialer),
		vapt.WithTLSTimeout(cfg.TLSTimeout),
		vapt.WithUserAgent(cfg.UserAgent),
		vapt.WithLogger(logger),
	)

	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddStep(pipeline.NewDiscoverStep(s, pipeline.WithDiscoverLogger(logger)))

	if cfg.Banner {
		identifier := protocol.NewIdentifier(dialer,
			[]protocol.Option{
				protocol.WithTimeout(cfg.Timeout),
				protocol.WithUserAgent(cfg.UserAgent),
			},
			protocol.WithLogger(logger),
		)
		p.AddStep(pipeline.NewIdentifyStep(identifier,
			pipeline.WithIdentifyLogger(logger),
			pipeline.WithBannerObserver(func(port uint16, info *model.BannerInfo) {
				printBannerInfo(progress, port, info)
			}),
		))
	}

	p.AddStep(pipeline.NewClassifyStep(classifier))

	if cfg.Verify {
		p.AddStep(pipeline.NewVerifyStep(verify.New(verify.WithLogger(logger)),
			pipeline.WithVerifyLogger(logger)))
	}

	return p
}

// writeReport renders results to stdout and, when configured, to the report
// file.
func writeReport(cfg *config.Config, format report.Format, stdout io.Writer, results []model.VaptResult) error {
	useColor := !cfg.NoColor && !color.NoColor
	writers := []report.Writer{report.NewWriter(format, stdout, report.WithColor(useColor))}

	if cfg.ReportFile != "" {
		f, err := createReportFile(cfg.ReportFile)
		if err != nil {
			return err
		}
		defer f.Close()
		writers = append(writers, report.NewWriter(format, f))
	}

	if _, err := report.NewMultiWriter(writers...).Write(results); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// createReportFile creates or truncates path with owner-only permissions.
// Reports describe the attack surface of the target.
func createReportFile(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // User-provided report path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}
