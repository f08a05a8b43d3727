package verify

import (
	"encoding/xml"
	"fmt"
	"slices"
	"strconv"
)

// nmapRun is the part of nmap's -oX document that verification reads.
type nmapRun struct {
	XMLName xml.Name   `xml:"nmaprun"`
	Hosts   []nmapHost `xml:"host"`
}

type nmapHost struct {
	Ports []nmapPort `xml:"ports>port"`
}

type nmapPort struct {
	Protocol string      `xml:"protocol,attr"`
	PortID   string      `xml:"portid,attr"`
	State    nmapState   `xml:"state"`
	Service  nmapService `xml:"service"`
}

type nmapState struct {
	State string `xml:"state,attr"`
}

type nmapService struct {
	Name string `xml:"name,attr"`
}

// ParseOpenPorts returns the sorted, de-duplicated TCP ports that nmap
// reported open in an -oX document.
func ParseOpenPorts(data []byte) ([]uint16, error) {
	var run nmapRun
	if err := xml.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to parse nmap XML: %w", err)
	}

	ports := make([]uint16, 0)
	for _, host := range run.Hosts {
		for _, p := range host.Ports {
			if p.Protocol != "tcp" || p.State.State != "open" {
				continue
			}
			n, err := strconv.ParseUint(p.PortID, 10, 16)
			if err != nil {
				return nil, fmt.Errorf("invalid port id %q in nmap XML: %w", p.PortID, err)
			}
			ports = append(ports, uint16(n))
		}
	}

	slices.Sort(ports)
	return slices.Compact(ports), nil
}
