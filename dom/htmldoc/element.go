package htmldoc

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/domstate/dom"
)

// element is a handle on a node of a Document.
type element struct {
	doc  *Document
	node *html.Node
}

func (e *element) Attr(name string) (string, bool, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	v, ok := getAttr(e.node, strings.ToLower(name))
	return v, ok, nil
}

func (e *element) SetAttr(name, value string) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	setAttr(e.node, strings.ToLower(name), value)
	return nil
}

func (e *element) RemoveAttr(name string) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	removeAttr(e.node, strings.ToLower(name))
	return nil
}

func (e *element) InnerHTML() (string, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	var sb strings.Builder
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&sb, c); err != nil {
			return "", fmt.Errorf("htmldoc: render inner html: %w", err)
		}
	}
	return sb.String(), nil
}

func (e *element) SetInnerHTML(s string) error {
	if e.doc.sanitizer != nil {
		s = e.doc.sanitizer.Sanitize(s)
	}

	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	nodes, err := html.ParseFragment(strings.NewReader(s), e.node)
	if err != nil {
		return fmt.Errorf("htmldoc: parse fragment: %w", err)
	}
	removeChildren(e.node)
	for _, n := range nodes {
		e.node.AppendChild(n)
	}
	return nil
}

func (e *element) Text() (string, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	var sb strings.Builder
	walk(e.node, func(n *html.Node) bool {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		return true
	})
	return sb.String(), nil
}

func (e *element) SetText(text string) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	removeChildren(e.node)
	e.node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return nil
}

func (e *element) MergeStyle(css string) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	existing, _ := getAttr(e.node, "style")
	merged, changed, err := dom.MergeStyle(existing, css)
	if err != nil {
		return err
	}
	switch {
	case !changed:
	case merged == "":
		removeAttr(e.node, "style")
	default:
		setAttr(e.node, "style", merged)
	}
	return nil
}

func setAttr(n *html.Node, name, value string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

func removeAttr(n *html.Node, name string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			continue
		}
		kept = append(kept, a)
	}
	n.Attr = kept
}

func removeChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}
