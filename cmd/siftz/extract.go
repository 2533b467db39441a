package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/zoobzio/siftz"
)

// step applies one extractor to the pipeline.
type step func(p *siftz.Pipeline, args []string) *siftz.Pipeline

func (a *app) extractorCommands() []*cobra.Command {
	var (
		minLength        int
		binary           bool
		allowUnspecified bool
		namespaces       map[string]string
		asXML            bool
	)
	matchOpts := func() []siftz.MatchOption {
		var opts []siftz.MatchOption
		if binary {
			opts = append(opts, siftz.Binary())
		}
		if allowUnspecified {
			opts = append(opts, siftz.AllowUnspecified())
		}
		return opts
	}

	stringsCmd := a.command("strings", "Printable ASCII runs", cobra.NoArgs,
		func(p *siftz.Pipeline, _ []string) *siftz.Pipeline {
			n := minLength
			if n == 0 {
				n = a.cfg.MinLength
			}
			return p.ExtractStrings(n)
		})
	stringsCmd.Flags().IntVarP(&minLength, "min-length", "n", 0, "Shortest run to keep (default from config)")

	ipsCmd := a.command("ips", "IPv4 and IPv6 addresses", cobra.NoArgs,
		func(p *siftz.Pipeline, _ []string) *siftz.Pipeline { return p.ExtractIPs(matchOpts()...) })
	ipsCmd.Flags().BoolVar(&allowUnspecified, "allow-unspecified", false, "Keep :: and 0.0.0.0")

	emailsCmd := a.command("emails", "Email addresses", cobra.NoArgs,
		func(p *siftz.Pipeline, _ []string) *siftz.Pipeline { return p.ExtractEmail(matchOpts()...) })
	macsCmd := a.command("macs", "MAC addresses", cobra.NoArgs,
		func(p *siftz.Pipeline, _ []string) *siftz.Pipeline { return p.ExtractMACAddress(matchOpts()...) })
	urlsCmd := a.command("urls", "URLs", cobra.NoArgs,
		func(p *siftz.Pipeline, _ []string) *siftz.Pipeline { return p.ExtractURLs(matchOpts()...) })
	domainsCmd := a.command("domains", "Network locations of URLs", cobra.NoArgs,
		func(p *siftz.Pipeline, _ []string) *siftz.Pipeline { return p.ExtractDomains(matchOpts()...) })
	for _, c := range []*cobra.Command{ipsCmd, emailsCmd, macsCmd, urlsCmd, domainsCmd} {
		c.Flags().BoolVarP(&binary, "binary", "b", false, "Match printable strings of binary input")
	}

	xpathCmd := a.command("xpath QUERY", "XPath selection over HTML, or XML with --xml", cobra.ExactArgs(1),
		func(p *siftz.Pipeline, args []string) *siftz.Pipeline {
			var opts []siftz.XPathOption
			if asXML {
				opts = append(opts, siftz.XMLDocument())
			}
			return p.XPathSelector(args[0], namespaces, opts...)
		})
	xpathCmd.Flags().StringToStringVar(&namespaces, "ns", nil, "Namespace prefixes, prefix=uri")
	xpathCmd.Flags().BoolVar(&asXML, "xml", false, "Parse input as XML")

	return []*cobra.Command{
		stringsCmd, ipsCmd, emailsCmd, macsCmd, urlsCmd, domainsCmd, xpathCmd,
		a.command("css SELECTOR", "CSS selection over HTML", cobra.ExactArgs(1),
			func(p *siftz.Pipeline, args []string) *siftz.Pipeline { return p.CSSSelector(args[0]) }),
		a.command("jpath QUERY", "JSONPath selection", cobra.ExactArgs(1),
			func(p *siftz.Pipeline, args []string) *siftz.Pipeline { return p.JPathSelector(args[0]) }),
		a.command("html-comments", "HTML comments", cobra.NoArgs,
			func(p *siftz.Pipeline, _ []string) *siftz.Pipeline { return p.HTMLComments() }),
		a.command("js-comments", "JavaScript comments", cobra.NoArgs,
			func(p *siftz.Pipeline, _ []string) *siftz.Pipeline { return p.JSComments() }),
		a.command("html-tags TAG", "Elements of one tag with their attributes", cobra.ExactArgs(1),
			func(p *siftz.Pipeline, args []string) *siftz.Pipeline { return p.HTMLTags(args[0]) }),
		a.command("secrets", "Secret patterns in stdin, read as an HTTP response", cobra.NoArgs,
			func(p *siftz.Pipeline, _ []string) *siftz.Pipeline { return p.Secrets() }),
	}
}

// command builds a subcommand that reads stdin, runs fn and prints the result.
func (a *app) command(use, short string, args cobra.PositionalArgs, fn step) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}

			// stdin doubles as the last response for secrets.
			opts := []siftz.Option{
				siftz.WithName("siftz"),
				siftz.WithResponse(string(input)),
				siftz.WithContext(cmd.Context()),
				siftz.WithLogger(a.logger),
				siftz.WithTimeout(a.cfg.Timeout),
			}
			if a.cfg.Catalog != "" {
				dir, file := filepath.Split(a.cfg.Catalog)
				if dir == "" {
					dir = "."
				}
				opts = append(opts, siftz.WithCatalog(siftz.NewCatalog(os.DirFS(dir), file)))
			}

			p := siftz.New(siftz.Bytes(input), opts...)
			defer p.Close()

			result, err := fn(p, args).Result()
			if err != nil {
				return err
			}
			return writeValue(cmd.OutOrStdout(), result, a.cfg.Output)
		},
	}
}
