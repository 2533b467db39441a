// Package siftz extracts artifacts from raw input through chains of named,
// composable processors.
//
// # Overview
//
// A forensic or recon workflow usually starts with a blob of bytes or a page
// of text and narrows it step by step: pull the printable strings out of a
// binary, keep the ones that look like URLs, reduce those to host names. siftz
// models each step as a Chainable[Value] and offers two ways to run them:
//
//   - Pipeline: a fluent, stateful wrapper that holds one Value and replaces
//     it with the output of each operation
//   - Sequence: a replayable, concurrency-safe list of processors, which is
//     also what Pipeline.Recipe returns
//
// # Values
//
// Value is a tagged union of the shapes extractors consume and produce:
// Bytes, Text, List, Map (ordered), Pair, Null, Bool and Number. Extractors
// view their input through the coercions AsBytes, AsText, AsList and AsMap.
// A List input is processed element by element, so an extractor re-run on
// its own output returns the same result.
//
// # Extractors
//
//   - Strings: printable ASCII runs of a minimum length
//   - IPs, Emails, MACAddresses: tokens that match an address pattern
//   - URLs, Domains: URLs found in the input and their network locations
//   - XPath, CSS, JPath: structured queries over HTML, XML and JSON
//   - HTMLComments, HTMLTags, JSComments: markup and script inspection
//   - Secrets: a pattern catalog run against the last HTTP response
//
// # Usage Example
//
//	p := siftz.New(siftz.Text(page), siftz.WithTimeout(5*time.Second))
//	defer p.Close()
//
//	hosts, err := p.
//	    CSSSelector("a::attr(href)").
//	    ExtractDomains().
//	    Result()
//	if err != nil {
//	    var perr *siftz.Error[siftz.Value]
//	    if errors.As(err, &perr) {
//	        log.Printf("failed at %v", perr.Path)
//	    }
//	}
//
// # Error Handling
//
// Every failure reaches the caller as *Error[Value]. Its Path lists the
// pipeline, any connector and the processor that failed, and Err wraps one
// of ErrTypeConversion, ErrParse, ErrQuerySyntax or ErrMissingResponse so
// callers can branch with errors.Is.
//
// Errors on a Pipeline are sticky: after a failure the value and stack stay
// as they were and further operations do nothing until SetState is called.
//
// # Observability
//
// Pipeline and Sequence each carry a metricz registry, a tracez tracer and a
// hookz event bus. Pipeline also logs each operation through zap at debug
// level when a logger is supplied with WithLogger.
package siftz
