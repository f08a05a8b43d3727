package main

import (
	"fmt"
	"io"

	applog "github.com/nao1215/portvapt/internal/log"
	"github.com/nao1215/portvapt/internal/model"
)

// printBannerInfo prints an identified banner under its port. Banner text
// comes from the network, so control characters are stripped first.
func printBannerInfo(w io.Writer, port uint16, info *model.BannerInfo) {
	fmt.Fprintf(w, "Port %d banner:\n", port)
	fmt.Fprintf(w, "  Protocol: %s\n", info.Protocol)
	fmt.Fprintf(w, "  Banner: %s\n", applog.CleanText(info.Banner))

	if info.ServerInfo != nil {
		fmt.Fprintf(w, "  Server: %s\n", applog.CleanText(*info.ServerInfo))
	}
	if info.Version != nil {
		fmt.Fprintf(w, "  Version: %s\n", applog.CleanText(*info.Version))
	}
	if len(info.AdditionalInfo) > 0 {
		fmt.Fprintln(w, "  Additional Info:")
		for _, line := range info.AdditionalInfo {
			fmt.Fprintf(w, "    %s\n", applog.CleanText(line))
		}
	}
}

// printVerification prints the comparison against the reference scanner.
func printVerification(w io.Writer, v *model.Verification) {
	if v.Err != "" {
		fmt.Fprintf(w, "\nFailed to run %s: %s\n", v.Tool, v.Err)
		return
	}

	fmt.Fprintf(w, "\n[Verification] Comparison with %s:\n", v.Tool)
	if v.Matches() {
		fmt.Fprintf(w, " Results match %s output.\n", v.Tool)
		return
	}
	if len(v.OnlyOurs) > 0 {
		fmt.Fprintf(w, "  Ports found only by this scanner: %v\n", v.OnlyOurs)
	}
	if len(v.OnlyReference) > 0 {
		fmt.Fprintf(w, "  Ports found only by %s: %v\n", v.Tool, v.OnlyReference)
	}
}
