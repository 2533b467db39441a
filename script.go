package siftz

import "context"

// JSCommentsName is the processor name of JSComments.
const JSCommentsName Name = "js_comments"

// JSComments returns /* block */ and // line comments found in the current
// value. It is a pattern scan rather than a JavaScript lexer, so "//" inside
// string literals or URLs shows up as a comment as well.
func JSComments() Processor[Value] {
	return Apply(JSCommentsName, func(_ context.Context, v Value) (Value, error) {
		text, err := AsText(v)
		if err != nil {
			return v, err
		}
		return TextList(jsCommentPattern.FindAllString(text, -1)...), nil
	})
}
