package siftz

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"
)

// Processor names of the markup extractors.
const (
	XPathName        Name = "xpath_selector"
	CSSName          Name = "css_selector"
	HTMLCommentsName Name = "html_comments"
	HTMLTagsName     Name = "html_tags"
)

// XPathOption configures XPath.
type XPathOption func(*xpathConfig)

type xpathConfig struct {
	xml bool
}

// XMLDocument parses the input as XML instead of HTML. Namespaced elements
// only match prefixed queries in this mode, and malformed XML is an ErrParse.
func XMLDocument() XPathOption {
	return func(c *xpathConfig) {
		c.xml = true
	}
}

// XPath evaluates an XPath expression against the current value parsed as
// markup and returns every matched fragment: elements and comments as raw
// markup, text and attribute nodes as their value, and scalar results such
// as count() or name() as a single item. No match is an empty list.
//
// The text is parsed as HTML, which never fails on malformed input, unless
// XMLDocument is given. The namespace map is handed to the XPath compiler
// as is.
func XPath(query string, namespaces map[string]string, opts ...XPathOption) Processor[Value] {
	var cfg xpathConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return Apply(XPathName, func(_ context.Context, v Value) (Value, error) {
		text, err := AsText(v)
		if err != nil {
			return v, err
		}
		expr, err := compileXPath(query, namespaces)
		if err != nil {
			return v, err
		}
		var out []Value
		if cfg.xml {
			root, err := xmlquery.Parse(strings.NewReader(text))
			if err != nil {
				return v, fmt.Errorf("%w: xml: %v", ErrParse, err)
			}
			out, err = evaluate(expr, xmlquery.CreateXPathNavigator(root), xmlFragment)
			if err != nil {
				return v, err
			}
		} else {
			root, err := parseHTML(text)
			if err != nil {
				return v, err
			}
			out, err = evaluate(expr, htmlquery.CreateXPathNavigator(root), htmlFragment)
			if err != nil {
				return v, err
			}
		}
		return List(out...), nil
	})
}

// CSS evaluates a CSS selector against the current value parsed as HTML and
// returns the outer markup of every matched element. Two pseudo-elements are
// understood at the end of the selector: ::text yields the direct text
// children of each match and ::attr(name) yields the named attribute.
func CSS(query string) Processor[Value] {
	return Apply(CSSName, func(_ context.Context, v Value) (Value, error) {
		text, err := AsText(v)
		if err != nil {
			return v, err
		}
		sel, pseudo, attr := splitPseudo(query)
		matcher, err := cascadia.Compile(sel)
		if err != nil {
			return v, fmt.Errorf("%w: css %q: %v", ErrQuerySyntax, query, err)
		}
		root, err := parseHTML(text)
		if err != nil {
			return v, err
		}

		var out []Value
		var renderErr error
		goquery.NewDocumentFromNode(root).FindMatcher(matcher).Each(func(_ int, s *goquery.Selection) {
			switch pseudo {
			case pseudoText:
				for c := s.Nodes[0].FirstChild; c != nil; c = c.NextSibling {
					if c.Type == html.TextNode {
						out = append(out, Text(c.Data))
					}
				}
			case pseudoAttr:
				if val, ok := s.Attr(attr); ok {
					out = append(out, Text(val))
				}
			default:
				frag, err := goquery.OuterHtml(s)
				if err != nil && renderErr == nil {
					renderErr = err
				}
				out = append(out, Text(frag))
			}
		})
		if renderErr != nil {
			return v, fmt.Errorf("%w: render: %v", ErrParse, renderErr)
		}
		return List(out...), nil
	})
}

// HTMLComments returns every non-empty comment in the current value,
// including its <!-- --> delimiters.
func HTMLComments() Processor[Value] {
	expr := xpath.MustCompile("//comment()")
	return Apply(HTMLCommentsName, func(_ context.Context, v Value) (Value, error) {
		text, err := AsText(v)
		if err != nil {
			return v, err
		}
		root, err := parseHTML(text)
		if err != nil {
			return v, err
		}
		found, err := evaluate(expr, htmlquery.CreateXPathNavigator(root), htmlFragment)
		if err != nil {
			return v, err
		}
		out := make([]Value, 0, len(found))
		for _, frag := range found {
			if frag.text != "" {
				out = append(out, frag)
			}
		}
		return List(out...), nil
	})
}

// HTMLTags returns one record per element named tag:
//
//	{"tag": tag, "attributes": {name: value, ...}}
//
// Attributes keep document order. The tag field echoes the argument.
func HTMLTags(tag string) Processor[Value] {
	return Apply(HTMLTagsName, func(_ context.Context, v Value) (Value, error) {
		text, err := AsText(v)
		if err != nil {
			return v, err
		}
		if !tagName.MatchString(tag) {
			return v, fmt.Errorf("%w: tag %q is not an element name", ErrQuerySyntax, tag)
		}
		expr, err := compileXPath("//"+tag, nil)
		if err != nil {
			return v, err
		}
		root, err := parseHTML(text)
		if err != nil {
			return v, err
		}
		var out []Value
		iter, ok := expr.Evaluate(htmlquery.CreateXPathNavigator(root)).(*xpath.NodeIterator)
		if !ok {
			return List(), nil
		}
		for iter.MoveNext() {
			nav, ok := iter.Current().(*htmlquery.NodeNavigator)
			if !ok || nav.NodeType() != xpath.ElementNode {
				continue
			}
			attrs := NewMap()
			for _, a := range nav.Current().Attr {
				key := a.Key
				if a.Namespace != "" {
					key = a.Namespace + ":" + a.Key
				}
				attrs.Set(key, Text(a.Val))
			}
			record := NewMap().
				Set("tag", Text(tag)).
				Set("attributes", MapValue(attrs))
			out = append(out, MapValue(record))
		}
		return List(out...), nil
	})
}

func parseHTML(text string) (*html.Node, error) {
	root, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("%w: html: %v", ErrParse, err)
	}
	return root, nil
}

// tagName is an XML element name, optionally prefixed.
var tagName = regexp.MustCompile(`^[A-Za-z_][\w.\-]*(:[A-Za-z_][\w.\-]*)?$`)

func compileXPath(query string, namespaces map[string]string) (*xpath.Expr, error) {
	if err := checkDelimiters(query); err != nil {
		return nil, fmt.Errorf("%w: xpath %q: %v", ErrQuerySyntax, query, err)
	}
	var expr *xpath.Expr
	var err error
	if len(namespaces) > 0 {
		expr, err = xpath.CompileWithNS(query, namespaces)
	} else {
		expr, err = xpath.Compile(query)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: xpath %q: %v", ErrQuerySyntax, query, err)
	}
	return expr, nil
}

// checkDelimiters reports brackets and parentheses that do not pair up
// outside string literals. The xpath compiler stops at the first token it
// cannot use, so a stray closer would otherwise be ignored.
func checkDelimiters(query string) error {
	var (
		stack []rune
		quote rune
	)
	for i, r := range query {
		if quote != 0 {
			if r == quote {
				quote = 0
			}
			continue
		}
		switch r {
		case '\'', '"':
			quote = r
		case '[', '(':
			stack = append(stack, r)
		case ']', ')':
			open := '['
			if r == ')' {
				open = '('
			}
			if len(stack) == 0 || stack[len(stack)-1] != open {
				return fmt.Errorf("unexpected %q at offset %d", r, i)
			}
			stack = stack[:len(stack)-1]
		}
	}
	if quote != 0 {
		return fmt.Errorf("unterminated string literal")
	}
	if len(stack) > 0 {
		return fmt.Errorf("unclosed %q", stack[len(stack)-1])
	}
	return nil
}

func evaluate(expr *xpath.Expr, root xpath.NodeNavigator, fragment func(xpath.NodeNavigator) (string, error)) ([]Value, error) {
	switch res := expr.Evaluate(root).(type) {
	case *xpath.NodeIterator:
		var out []Value
		for res.MoveNext() {
			frag, err := fragment(res.Current())
			if err != nil {
				return nil, err
			}
			out = append(out, Text(frag))
		}
		return out, nil
	case string:
		return []Value{Text(res)}, nil
	case float64:
		return []Value{Text(strconv.FormatFloat(res, 'f', -1, 64))}, nil
	case bool:
		return []Value{Text(strconv.FormatBool(res))}, nil
	}
	return nil, nil
}

func htmlFragment(nav xpath.NodeNavigator) (string, error) {
	switch nav.NodeType() {
	case xpath.AttributeNode, xpath.TextNode:
		return nav.Value(), nil
	}
	node, ok := nav.(*htmlquery.NodeNavigator)
	if !ok {
		return nav.Value(), nil
	}
	var b strings.Builder
	if err := html.Render(&b, node.Current()); err != nil {
		return "", fmt.Errorf("%w: render: %v", ErrParse, err)
	}
	return b.String(), nil
}

func xmlFragment(nav xpath.NodeNavigator) (string, error) {
	switch nav.NodeType() {
	case xpath.AttributeNode, xpath.TextNode:
		return nav.Value(), nil
	}
	node, ok := nav.(*xmlquery.NodeNavigator)
	if !ok {
		return nav.Value(), nil
	}
	return node.Current().OutputXML(true), nil
}

type pseudoElement uint8

const (
	pseudoNone pseudoElement = iota
	pseudoText
	pseudoAttr
)

var attrSuffix = regexp.MustCompile(`::attr\(\s*([^)\s]+)\s*\)\s*$`)

func splitPseudo(query string) (string, pseudoElement, string) {
	trimmed := strings.TrimSpace(query)
	if sel, ok := strings.CutSuffix(trimmed, "::text"); ok {
		return sel, pseudoText, ""
	}
	if m := attrSuffix.FindStringSubmatchIndex(trimmed); m != nil {
		return trimmed[:m[0]], pseudoAttr, trimmed[m[2]:m[3]]
	}
	return trimmed, pseudoNone, ""
}
