package siftz

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const testPage = `<html><body>
<div id="main"><p class="x">Hi <b>there</b></p><a href="/1">one</a><a>two</a></div>
<!-- build 42 -->
</body></html>`

func TestXPath(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Value
	}{
		{"Elements", "//a", TextList(`<a href="/1">one</a>`, "<a>two</a>")},
		{"Text Nodes", "//a/text()", TextList("one", "two")},
		{"Attributes", "//a/@href", TextList("/1")},
		{"Scalar", "count(//a)", TextList("2")},
		{"No Match", "//table", List()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := runProc(t, XPath(tt.query, nil), Text(testPage))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("unexpected result (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("Namespaces", func(t *testing.T) {
		doc := `<root xmlns:x="urn:x"><x:item>1</x:item><x:item>2</x:item><item>3</item></root>`
		got := runProc(t, XPath("//x:item/text()", map[string]string{"x": "urn:x"}, XMLDocument()), Text(doc))
		if diff := cmp.Diff(TextList("1", "2"), got); diff != "" {
			t.Errorf("unexpected result (-want +got):\n%s", diff)
		}
	})

	t.Run("Namespaces Over Lenient HTML", func(t *testing.T) {
		got := runProc(t, XPath("//p/text()", map[string]string{"x": "urn:x"}), Text("<p>a<br></p>"))
		if diff := cmp.Diff(TextList("a"), got); diff != "" {
			t.Errorf("unexpected result (-want +got):\n%s", diff)
		}
	})

	t.Run("Malformed XML", func(t *testing.T) {
		_, err := XPath("//a", nil, XMLDocument()).Process(context.Background(), Text("<root><a"))
		if !errors.Is(err, ErrParse) {
			t.Errorf("expected ErrParse, got %v", err)
		}
	})

	t.Run("Trailing Junk", func(t *testing.T) {
		for _, query := range []string{"//p]", "//p)", "//a[@x='1'", "//a[@x='1]"} {
			_, err := XPath(query, nil).Process(context.Background(), Text(testPage))
			if !errors.Is(err, ErrQuerySyntax) {
				t.Errorf("%s: expected ErrQuerySyntax, got %v", query, err)
			}
		}
	})

	t.Run("Brackets Inside Literals", func(t *testing.T) {
		got := runProc(t, XPath("//a[@title='[x)']/text()", nil), Text(`<a title="[x)">in</a><a>out</a>`))
		if diff := cmp.Diff(TextList("in"), got); diff != "" {
			t.Errorf("unexpected result (-want +got):\n%s", diff)
		}
	})

	t.Run("Bad Query", func(t *testing.T) {
		_, err := XPath("//a[", nil).Process(context.Background(), Text(testPage))
		if !errors.Is(err, ErrQuerySyntax) {
			t.Errorf("expected ErrQuerySyntax, got %v", err)
		}
	})

	t.Run("Binary Input", func(t *testing.T) {
		_, err := XPath("//a", nil).Process(context.Background(), Bytes([]byte{0xff, 0xfe}))
		if !errors.Is(err, ErrTypeConversion) {
			t.Errorf("expected ErrTypeConversion, got %v", err)
		}
	})
}

func TestCSS(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Value
	}{
		{"Outer HTML", "p.x", TextList(`<p class="x">Hi <b>there</b></p>`)},
		{"Text", "p::text", TextList("Hi ")},
		{"Attribute", "a::attr(href)", TextList("/1")},
		{"Descendant", "#main b", TextList("<b>there</b>")},
		{"No Match", "table", List()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := runProc(t, CSS(tt.query), Text(testPage))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("unexpected result (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("Bad Selector", func(t *testing.T) {
		_, err := CSS("p[").Process(context.Background(), Text(testPage))
		if !errors.Is(err, ErrQuerySyntax) {
			t.Errorf("expected ErrQuerySyntax, got %v", err)
		}
		var perr *Error[Value]
		if !errors.As(err, &perr) || perr.Path[0] != CSSName {
			t.Errorf("expected path to start with %s, got %v", CSSName, err)
		}
	})
}

func TestHTMLComments(t *testing.T) {
	t.Run("Single", func(t *testing.T) {
		got := runProc(t, HTMLComments(), Text("<p><!-- note --></p>"))
		if diff := cmp.Diff(TextList("<!-- note -->"), got); diff != "" {
			t.Errorf("unexpected comments (-want +got):\n%s", diff)
		}
	})

	t.Run("Document Order", func(t *testing.T) {
		got := runProc(t, HTMLComments(), Text("<!--a--><div><!--b--></div>"+testPage))
		want := TextList("<!--a-->", "<!--b-->", "<!-- build 42 -->")
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("unexpected comments (-want +got):\n%s", diff)
		}
	})

	t.Run("None", func(t *testing.T) {
		got := runProc(t, HTMLComments(), Text("<p>plain</p>"))
		if got.Len() != 0 {
			t.Errorf("expected no comments, got %v", got)
		}
	})
}

func TestHTMLTags(t *testing.T) {
	got := runProc(t, HTMLTags("p"), Text(`<p class='x'>a</p><p>b</p>`))
	want := List(
		MapValue(NewMap().
			Set("tag", Text("p")).
			Set("attributes", MapValue(NewMap().Set("class", Text("x"))))),
		MapValue(NewMap().
			Set("tag", Text("p")).
			Set("attributes", MapValue(NewMap()))),
	)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected tags (-want +got):\n%s", diff)
	}

	t.Run("Attribute Order", func(t *testing.T) {
		got := runProc(t, HTMLTags("a"), Text(`<a z="1" a="2" m="3">x</a>`))
		rec, _ := got.Index(0)
		m, _ := AsMap(rec)
		attrs, _ := m.Get("attributes")
		am, _ := AsMap(attrs)
		if diff := cmp.Diff([]string{"z", "a", "m"}, am.Keys()); diff != "" {
			t.Errorf("attributes should keep document order (-want +got):\n%s", diff)
		}
	})

	t.Run("JSON Shape", func(t *testing.T) {
		out, err := got.MarshalJSON()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		wantJSON := `[{"tag":"p","attributes":{"class":"x"}},{"tag":"p","attributes":{}}]`
		if string(out) != wantJSON {
			t.Errorf("expected %s, got %s", wantJSON, out)
		}
	})

	t.Run("Invalid Tag", func(t *testing.T) {
		for _, tag := range []string{"p]", "p)", "", "a b"} {
			_, err := HTMLTags(tag).Process(context.Background(), Text("<p>x</p>"))
			if !errors.Is(err, ErrQuerySyntax) {
				t.Errorf("%q: expected ErrQuerySyntax, got %v", tag, err)
			}
		}
	})
}

func TestJSComments(t *testing.T) {
	got := runProc(t, JSComments(), Text("/* block */ var a = 1; // note"))
	if diff := cmp.Diff(TextList("/* block */", "// note"), got); diff != "" {
		t.Errorf("unexpected comments (-want +got):\n%s", diff)
	}
}

func TestJPath(t *testing.T) {
	t.Run("Relative Query", func(t *testing.T) {
		got := runProc(t, JPath("[*].name"), Text(`[{"name":"A"},{"name":"B"}]`))
		if diff := cmp.Diff(TextList("A", "B"), got); diff != "" {
			t.Errorf("unexpected result (-want +got):\n%s", diff)
		}
	})

	t.Run("Rooted Query", func(t *testing.T) {
		got := runProc(t, JPath("$.a.b"), Text(`{"a":{"b":3}}`))
		if diff := cmp.Diff(List(Int(3)), got); diff != "" {
			t.Errorf("unexpected result (-want +got):\n%s", diff)
		}
	})

	t.Run("Dotted Query", func(t *testing.T) {
		got := runProc(t, JPath("a.c"), Text(`{"a":{"c":{"y":null,"x":true}}}`))
		want := List(MapValue(NewMap().Set("y", Null()).Set("x", Bool(true))))
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("unexpected result (-want +got):\n%s", diff)
		}
	})

	t.Run("Wildcard Over Object Keeps Document Order", func(t *testing.T) {
		want := List(Int(1), Int(2), Int(3), Int(4))
		for i := 0; i < 50; i++ {
			got := runProc(t, JPath("$.*"), Text(`{"b":1,"a":2,"c":3,"d":4}`))
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("run %d: unexpected result (-want +got):\n%s", i, diff)
			}
		}
	})

	t.Run("Descent Keeps Document Order", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			got := runProc(t, JPath("$..name"), Text(`{"z":{"name":"Z"},"a":{"name":"A"}}`))
			if diff := cmp.Diff(TextList("Z", "A"), got); diff != "" {
				t.Fatalf("run %d: unexpected result (-want +got):\n%s", i, diff)
			}
		}
	})

	t.Run("Repeated Key Keeps Last Value", func(t *testing.T) {
		got := runProc(t, JPath("$"), Text(`{"k":1,"j":2,"k":3}`))
		want := List(MapValue(NewMap().Set("k", Int(3)).Set("j", Int(2))))
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("unexpected result (-want +got):\n%s", diff)
		}
	})

	t.Run("Trailing Document Is Rejected", func(t *testing.T) {
		_, err := JPath("$").Process(context.Background(), Text(`{} {}`))
		if !errors.Is(err, ErrParse) {
			t.Errorf("expected ErrParse, got %v", err)
		}
	})

	t.Run("No Match", func(t *testing.T) {
		got := runProc(t, JPath("missing"), Text(`{"a":1}`))
		if got.Kind() != KindList || got.Len() != 0 {
			t.Errorf("expected empty list, got %v", got)
		}
	})

	t.Run("Invalid JSON", func(t *testing.T) {
		_, err := JPath("[*].name").Process(context.Background(), Text(`{`))
		if !errors.Is(err, ErrParse) {
			t.Errorf("expected ErrParse, got %v", err)
		}
	})

	t.Run("Empty Query", func(t *testing.T) {
		_, err := JPath("  ").Process(context.Background(), Text(`{}`))
		if !errors.Is(err, ErrQuerySyntax) {
			t.Errorf("expected ErrQuerySyntax, got %v", err)
		}
	})
}
