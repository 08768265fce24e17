package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/pagewatch/pagewatch/internal/urlutil"
)

// Render converts an HTML document to a flat markdown approximation:
// headings, list items, emphasis, code, links and images survive; scripts,
// styles and markup structure do not. Link and image targets are resolved
// against baseURL. Malformed HTML is handled best-effort by the parser and
// never fails. The output depends only on the inputs.
func Render(htmlText, baseURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	r := &renderer{base: baseURL}
	for _, node := range doc.Find("body").Nodes {
		r.walk(node)
	}
	r.flushParagraph()
	if len(r.blocks) == 0 {
		return "", nil
	}
	return strings.Join(r.blocks, "\n\n") + "\n", nil
}

// lineBreakMark stands in for <br> until whitespace collapsing is done, so
// formatting newlines in the source can be folded without losing real breaks.
const lineBreakMark = "\x00"

var anySpace = regexp.MustCompile(`\s+`)

type renderer struct {
	base      string
	blocks    []string
	paragraph strings.Builder
}

func (r *renderer) walk(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		r.node(c)
	}
}

func (r *renderer) node(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		r.paragraph.WriteString(n.Data)
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Head, atom.Noscript, atom.Template, atom.Iframe:
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			r.flushParagraph()
			level := int(n.Data[1] - '0')
			r.writeBlock(strings.Repeat("#", level) + " " + r.inlineOf(n))
		case atom.P:
			r.flushParagraph()
			r.writeBlock(r.inlineOf(n))
		case atom.Ul, atom.Ol:
			r.flushParagraph()
			if lines := r.listLines(n, 0, n.DataAtom == atom.Ol); len(lines) > 0 {
				r.writeBlock(strings.Join(lines, "\n"))
			}
		case atom.Pre:
			r.flushParagraph()
			r.writeBlock("```\n" + strings.TrimRight(rawText(n), "\n") + "\n```")
		case atom.Blockquote:
			r.flushParagraph()
			r.quote(n)
		case atom.Hr:
			r.flushParagraph()
			r.writeBlock("---")
		case atom.Br:
			r.paragraph.WriteString(lineBreakMark)
		case atom.Div, atom.Section, atom.Article, atom.Main, atom.Header,
			atom.Footer, atom.Aside, atom.Nav, atom.Figure, atom.Figcaption,
			atom.Table, atom.Thead, atom.Tbody, atom.Tfoot, atom.Tr,
			atom.Td, atom.Th, atom.Li, atom.Form, atom.Fieldset, atom.Dl,
			atom.Dt, atom.Dd, atom.Details, atom.Summary:
			r.flushParagraph()
			r.walk(n)
			r.flushParagraph()
		default:
			r.inlineNode(n, &r.paragraph)
		}
	}
}

func (r *renderer) listLines(n *html.Node, depth int, ordered bool) []string {
	indent := strings.Repeat("  ", depth)
	var lines []string
	index := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.DataAtom != atom.Li {
			continue
		}
		index++
		marker := "- "
		if ordered {
			marker = fmt.Sprintf("%d. ", index)
		}
		var sb strings.Builder
		for gc := c.FirstChild; gc != nil; gc = gc.NextSibling {
			if gc.Type == html.ElementNode && (gc.DataAtom == atom.Ul || gc.DataAtom == atom.Ol) {
				continue
			}
			r.inlineNode(gc, &sb)
		}
		if text := collapseInline(sb.String()); text != "" {
			lines = append(lines, indent+marker+text)
		}
		for gc := c.FirstChild; gc != nil; gc = gc.NextSibling {
			if gc.Type == html.ElementNode && (gc.DataAtom == atom.Ul || gc.DataAtom == atom.Ol) {
				lines = append(lines, r.listLines(gc, depth+1, gc.DataAtom == atom.Ol)...)
			}
		}
	}
	return lines
}

func (r *renderer) quote(n *html.Node) {
	inner := &renderer{base: r.base}
	inner.walk(n)
	inner.flushParagraph()
	if len(inner.blocks) == 0 {
		return
	}
	var quoted []string
	for _, block := range inner.blocks {
		for _, line := range strings.Split(block, "\n") {
			quoted = append(quoted, "> "+line)
		}
	}
	r.writeBlock(strings.Join(quoted, "\n"))
}

func (r *renderer) inlineOf(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		r.inlineNode(c, &sb)
	}
	return collapseInline(sb.String())
}

func (r *renderer) inlineNode(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Template:
		case atom.Br:
			sb.WriteString(lineBreakMark)
		case atom.A:
			text := r.inlineOf(n)
			href := r.resolve(attr(n, "href"))
			switch {
			case href == "":
				sb.WriteString(text)
			case text == "":
				sb.WriteString(href)
			default:
				fmt.Fprintf(sb, "[%s](%s)", text, href)
			}
		case atom.Img:
			if src := r.resolve(attr(n, "src")); src != "" {
				fmt.Fprintf(sb, "![%s](%s)", attr(n, "alt"), src)
			}
		case atom.Strong, atom.B:
			if text := r.inlineOf(n); text != "" {
				fmt.Fprintf(sb, "**%s**", text)
			}
		case atom.Em, atom.I:
			if text := r.inlineOf(n); text != "" {
				fmt.Fprintf(sb, "*%s*", text)
			}
		case atom.Code, atom.Kbd, atom.Samp:
			if text := collapseInline(rawText(n)); text != "" {
				fmt.Fprintf(sb, "`%s`", text)
			}
		default:
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				r.inlineNode(c, sb)
			}
		}
	}
}

// resolve makes href absolute relative to the document base. Unparseable
// values pass through untouched so the rendering still reflects them.
func (r *renderer) resolve(href string) string {
	if href == "" {
		return ""
	}
	resolved, err := urlutil.ResolveReference(r.base, href)
	if err != nil {
		return href
	}
	return resolved
}

func (r *renderer) flushParagraph() {
	text := collapseInline(r.paragraph.String())
	r.paragraph.Reset()
	r.writeBlock(text)
}

func (r *renderer) writeBlock(text string) {
	if text == "" {
		return
	}
	r.blocks = append(r.blocks, text)
}

// collapseInline folds all source whitespace runs into single spaces, then
// turns <br> marks into real newlines.
func collapseInline(s string) string {
	s = anySpace.ReplaceAllString(s, " ")
	parts := strings.Split(s, lineBreakMark)
	kept := parts[:0]
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, "\n")
}

func rawText(n *html.Node) string {
	var sb strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
