package siftz

import (
	"bytes"
	"context"
	"net/netip"
	"net/url"
	"regexp"
	"strings"
)

// Processor names of the pattern extractors.
const (
	ExtractIPsName        Name = "extract_ips"
	ExtractEmailName      Name = "extract_email"
	ExtractMACAddressName Name = "extract_mac_address"
	ExtractURLsName       Name = "extract_urls"
	ExtractDomainsName    Name = "extract_domains"
)

// MatchOption configures a pattern extractor.
type MatchOption func(*matchConfig)

type matchConfig struct {
	binary           bool
	allowUnspecified bool
}

// Binary switches an extractor to binary mode: printable strings of at least
// DefaultMinLength bytes are pulled out of the input first and each string is
// then matched as a whole, instead of splitting the input on whitespace.
func Binary() MatchOption {
	return func(c *matchConfig) { c.binary = true }
}

// AllowUnspecified makes IPs keep the unspecified address (::, 0.0.0.0 and
// their long forms), which it drops otherwise.
func AllowUnspecified() MatchOption {
	return func(c *matchConfig) { c.allowUnspecified = true }
}

func newMatchConfig(opts []MatchOption) matchConfig {
	var c matchConfig
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// units returns the candidates a pattern is tested against: whitespace
// separated tokens in text mode, printable strings in binary mode.
func units(v Value, binary bool) ([][]byte, error) {
	srcs, err := Sources(v)
	if err != nil {
		return nil, err
	}
	var out [][]byte
	for _, src := range srcs {
		if binary {
			out = append(out, printableRuns(src, DefaultMinLength)...)
			continue
		}
		out = append(out, bytes.Fields(src)...)
	}
	return out, nil
}

// filterUnits keeps every unit the pattern matches, in order.
func filterUnits(name Name, pattern *regexp.Regexp, keep func([]byte) bool, opts []MatchOption) Processor[Value] {
	cfg := newMatchConfig(opts)
	return Apply(name, func(_ context.Context, v Value) (Value, error) {
		candidates, err := units(v, cfg.binary)
		if err != nil {
			return v, err
		}
		var out []Value
		for _, unit := range candidates {
			if pattern.Match(unit) && (keep == nil || keep(unit)) {
				out = append(out, Text(string(unit)))
			}
		}
		return List(out...), nil
	})
}

// IPs extracts IPv4 and IPv6 addresses. Each candidate must be a complete
// address; an optional %zone suffix is allowed on IPv6.
func IPs(opts ...MatchOption) Processor[Value] {
	cfg := newMatchConfig(opts)
	var keep func([]byte) bool
	if !cfg.allowUnspecified {
		keep = func(unit []byte) bool { return !isUnspecified(unit) }
	}
	return filterUnits(ExtractIPsName, ipPattern, keep, opts)
}

func isUnspecified(unit []byte) bool {
	addr, err := netip.ParseAddr(string(bytes.TrimSpace(unit)))
	if err != nil {
		return false
	}
	return addr.Unmap().IsUnspecified()
}

// Emails extracts tokens of the form local@domain.tld.
func Emails(opts ...MatchOption) Processor[Value] {
	return filterUnits(ExtractEmailName, emailPattern, nil, opts)
}

// MACAddresses extracts tokens of exactly six colon separated hex pairs.
func MACAddresses(opts ...MatchOption) Processor[Value] {
	return filterUnits(ExtractMACAddressName, macPattern, nil, opts)
}

// URLs extracts file, ftp, ftps, http, https and ssh URLs. Matches are
// substrings, so a URL wrapped in other characters is still found.
func URLs(opts ...MatchOption) Processor[Value] {
	cfg := newMatchConfig(opts)
	return Apply(ExtractURLsName, func(_ context.Context, v Value) (Value, error) {
		var candidates [][]byte
		var err error
		if cfg.binary {
			candidates, err = units(v, true)
		} else {
			candidates, err = Sources(v)
		}
		if err != nil {
			return v, err
		}
		var out []Value
		for _, unit := range candidates {
			for _, m := range urlPattern.FindAll(unit, -1) {
				out = append(out, Text(string(m)))
			}
		}
		return List(out...), nil
	})
}

// Domains extracts the network location (userinfo@host:port) of URLs.
//
// In text mode only whitespace tokens that start with "http" are parsed. In
// binary mode every extracted string is parsed without that filter, so
// strings that are not URLs contribute an empty entry.
func Domains(opts ...MatchOption) Processor[Value] {
	cfg := newMatchConfig(opts)
	return Apply(ExtractDomainsName, func(_ context.Context, v Value) (Value, error) {
		candidates, err := units(v, cfg.binary)
		if err != nil {
			return v, err
		}
		var out []Value
		for _, unit := range candidates {
			if !cfg.binary && !bytes.HasPrefix(unit, []byte("http")) {
				continue
			}
			out = append(out, Text(netloc(string(unit))))
		}
		return List(out...), nil
	})
}

// netloc returns the authority of raw. URLs that net/url rejects, such as
// hosts with bad percent escapes, are split by hand.
func netloc(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		_, rest, ok := strings.Cut(raw, "//")
		if !ok {
			return ""
		}
		if end := strings.IndexAny(rest, "/?#"); end >= 0 {
			rest = rest[:end]
		}
		return rest
	}
	if u.User != nil {
		return u.User.String() + "@" + u.Host
	}
	return u.Host
}
