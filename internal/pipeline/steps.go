package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/portvapt/internal/model"
)

// PortScanner discovers open ports. *scanner.Scanner satisfies it.
type PortScanner interface {
	Scan(ctx context.Context, host string, r model.PortRange) ([]uint16, error)
}

// BannerIdentifier identifies the service on one port.
// *protocol.Identifier satisfies it.
type BannerIdentifier interface {
	Identify(ctx context.Context, host string, port uint16) *model.BannerInfo
}

// PortClassifier assesses open ports. *vapt.Classifier satisfies it.
type PortClassifier interface {
	ClassifyAll(ctx context.Context, host string, ports []uint16, banners map[uint16]*model.BannerInfo) []model.VaptResult
}

// PortVerifier cross-checks open ports. *verify.Verifier satisfies it.
type PortVerifier interface {
	Verify(ctx context.Context, host string, r model.PortRange, ours []uint16) (*model.Verification, error)
}

// DiscoverStep finds the open ports of the target range.
type DiscoverStep struct {
	scanner PortScanner
	logger  *slog.Logger
}

// DiscoverStepOption configures a DiscoverStep.
type DiscoverStepOption func(*DiscoverStep)

// WithDiscoverLogger sets a custom logger for the discovery step.
func WithDiscoverLogger(logger *slog.Logger) DiscoverStepOption {
	return func(s *DiscoverStep) {
		s.logger = logger
	}
}

// NewDiscoverStep creates the discovery step.
func NewDiscoverStep(scanner PortScanner, opts ...DiscoverStepOption) *DiscoverStep {
	s := &DiscoverStep{
		scanner: scanner,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *DiscoverStep) Name() string {
	return "discover"
}

// Do scans the range and stores the open ports in discovery order. A scan
// error is fatal: the open-port set would be incomplete.
func (s *DiscoverStep) Do(ctx context.Context, report *model.ScanReport) error {
	ports, err := s.scanner.Scan(ctx, report.Host, report.Range)
	report.OpenPorts = append(report.OpenPorts, ports...)
	if err != nil {
		return fmt.Errorf("port discovery failed: %w", err)
	}
	s.logger.Info("discovery complete",
		"host", report.Host,
		"range", report.Range.String(),
		"open", len(ports),
	)
	return nil
}

// BannerObserver is called for every identified banner as soon as it is
// known.
type BannerObserver func(port uint16, info *model.BannerInfo)

// IdentifyStep grabs banners from the open ports one at a time in
// ascending port order.
type IdentifyStep struct {
	identifier BannerIdentifier
	observer   BannerObserver
	logger     *slog.Logger
}

// IdentifyStepOption configures an IdentifyStep.
type IdentifyStepOption func(*IdentifyStep)

// WithBannerObserver sets the callback for identified banners.
func WithBannerObserver(fn BannerObserver) IdentifyStepOption {
	return func(s *IdentifyStep) {
		s.observer = fn
	}
}

// WithIdentifyLogger sets a custom logger for the identification step.
func WithIdentifyLogger(logger *slog.Logger) IdentifyStepOption {
	return func(s *IdentifyStep) {
		s.logger = logger
	}
}

// NewIdentifyStep creates the banner identification step.
func NewIdentifyStep(identifier BannerIdentifier, opts ...IdentifyStepOption) *IdentifyStep {
	s := &IdentifyStep{
		identifier: identifier,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *IdentifyStep) Name() string {
	return "identify"
}

// Do records a banner for every port where a probe hit. Ports without a
// hit get no entry. Identification never fails.
func (s *IdentifyStep) Do(ctx context.Context, report *model.ScanReport) error {
	if report.Banners == nil {
		report.Banners = make(map[uint16]*model.BannerInfo)
	}

	for _, port := range report.SortedOpenPorts() {
		if ctx.Err() != nil {
			break
		}
		info := s.identifier.Identify(ctx, report.Host, port)
		if info == nil {
			s.logger.Debug("no banner", "port", port)
			continue
		}
		report.Banners[port] = info
		if s.observer != nil {
			s.observer(port, info)
		}
	}
	return nil
}

// ClassifyStep turns every open port into a VaptResult.
type ClassifyStep struct {
	classifier PortClassifier
}

// NewClassifyStep creates the classification step.
func NewClassifyStep(classifier PortClassifier) *ClassifyStep {
	return &ClassifyStep{classifier: classifier}
}

// Name returns the step name.
func (s *ClassifyStep) Name() string {
	return "classify"
}

// Do classifies the open ports in ascending order, using whatever banners
// the identification step found.
func (s *ClassifyStep) Do(ctx context.Context, report *model.ScanReport) error {
	report.Results = s.classifier.ClassifyAll(ctx, report.Host, report.SortedOpenPorts(), report.Banners)
	return nil
}

// VerifyStep compares the open ports with a reference scanner.
type VerifyStep struct {
	verifier PortVerifier
	logger   *slog.Logger
}

// VerifyStepOption configures a VerifyStep.
type VerifyStepOption func(*VerifyStep)

// WithVerifyLogger sets a custom logger for the verification step.
func WithVerifyLogger(logger *slog.Logger) VerifyStepOption {
	return func(s *VerifyStep) {
		s.logger = logger
	}
}

// NewVerifyStep creates the verification step.
func NewVerifyStep(verifier PortVerifier, opts ...VerifyStepOption) *VerifyStep {
	s := &VerifyStep{
		verifier: verifier,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *VerifyStep) Name() string {
	return "verify"
}

// Do stores the comparison in the report. A failure to run the reference
// scanner is recorded in the Verification and logged, never returned.
func (s *VerifyStep) Do(ctx context.Context, report *model.ScanReport) error {
	v, err := s.verifier.Verify(ctx, report.Host, report.Range, report.OpenPorts)
	report.Verification = v
	if err != nil {
		s.logger.Warn("verification failed", "error", err)
	}
	return nil
}
