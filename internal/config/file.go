package config

import "time"

// Settings is one block of scan options in the config file. Unset fields
// leave the current value alone.
type Settings struct {
	Ports        string        `yaml:"ports,omitempty"`
	Timeout      time.Duration `yaml:"timeout,omitempty"`
	Concurrency  int           `yaml:"concurrency,omitempty"`
	Banner       *bool         `yaml:"banner,omitempty"`
	Output       string        `yaml:"output,omitempty"`
	Verify       *bool         `yaml:"verify,omitempty"`
	ServicesFile string        `yaml:"services_file,omitempty"`
	HTTPTimeout  time.Duration `yaml:"http_timeout,omitempty"`
	TLSTimeout   time.Duration `yaml:"tls_timeout,omitempty"`
	UserAgent    string        `yaml:"user_agent,omitempty"`
	Proxy        string        `yaml:"proxy,omitempty"`
	ReportFile   string        `yaml:"report_file,omitempty"`
	NoColor      *bool         `yaml:"no_color,omitempty"`
	LogJSON      *bool         `yaml:"log_json,omitempty"`
	LogFile      string        `yaml:"log_file,omitempty"`
}

// File represents the structure of the portvapt configuration file.
type File struct {
	// Defaults apply to every scan.
	Defaults Settings `yaml:"defaults,omitempty"`

	// Hosts maps a target host to settings that override Defaults when
	// that host is scanned.
	Hosts map[string]Settings `yaml:"hosts,omitempty"`
}

// SettingsFor returns Defaults merged with the host-specific block.
func (f *File) SettingsFor(host string) Settings {
	result := f.Defaults
	if hs, ok := f.Hosts[host]; ok {
		result = result.merge(hs)
	}
	return result
}

// merge returns s with every field that o sets replaced.
func (s Settings) merge(o Settings) Settings {
	setString(&s.Ports, o.Ports)
	setDuration(&s.Timeout, o.Timeout)
	if o.Concurrency != 0 {
		s.Concurrency = o.Concurrency
	}
	setBoolPtr(&s.Banner, o.Banner)
	setString(&s.Output, o.Output)
	setBoolPtr(&s.Verify, o.Verify)
	setString(&s.ServicesFile, o.ServicesFile)
	setDuration(&s.HTTPTimeout, o.HTTPTimeout)
	setDuration(&s.TLSTimeout, o.TLSTimeout)
	setString(&s.UserAgent, o.UserAgent)
	setString(&s.Proxy, o.Proxy)
	setString(&s.ReportFile, o.ReportFile)
	setBoolPtr(&s.NoColor, o.NoColor)
	setBoolPtr(&s.LogJSON, o.LogJSON)
	setString(&s.LogFile, o.LogFile)
	return s
}

// Apply overlays the settings onto c.
func (c *Config) Apply(s Settings) {
	setString(&c.Ports, s.Ports)
	setDuration(&c.Timeout, s.Timeout)
	if s.Concurrency != 0 {
		c.Concurrency = s.Concurrency
	}
	setBool(&c.Banner, s.Banner)
	setString(&c.Output, s.Output)
	setBool(&c.Verify, s.Verify)
	setString(&c.ServicesFile, s.ServicesFile)
	setDuration(&c.HTTPTimeout, s.HTTPTimeout)
	setDuration(&c.TLSTimeout, s.TLSTimeout)
	setString(&c.UserAgent, s.UserAgent)
	setString(&c.Proxy, s.Proxy)
	setString(&c.ReportFile, s.ReportFile)
	setBool(&c.NoColor, s.NoColor)
	setBool(&c.LogJSON, s.LogJSON)
	setString(&c.LogFile, s.LogFile)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setBoolPtr(dst **bool, v *bool) {
	if v != nil {
		*dst = v
	}
}
