package roddoc

import (
	"context"

	"github.com/hazyhaar/domstate/dom"
)

// element addresses a page element by id. Each call re-resolves the id, so
// a handle survives re-renders that keep the id.
type element struct {
	doc *Document
	ctx context.Context
	id  string
}

type attrResult struct {
	Missing bool   `json:"missing"`
	Present bool   `json:"present"`
	Value   string `json:"value"`
}

func (e *element) Attr(name string) (string, bool, error) {
	var r attrResult
	err := e.doc.eval(e.ctx, &r, `(id, n) => {
		const el = document.getElementById(id);
		if (!el) return JSON.stringify({missing: true});
		const v = el.getAttribute(n);
		return JSON.stringify({present: v !== null, value: v === null ? "" : v});
	}`, e.id, name)
	if err != nil {
		return "", false, err
	}
	if err := errIfMissing(e.id, r.Missing); err != nil {
		return "", false, err
	}
	return r.Value, r.Present, nil
}

func (e *element) SetAttr(name, value string) error {
	return e.write(`(id, n, v) => {
		const el = document.getElementById(id);
		if (!el) return JSON.stringify(true);
		el.setAttribute(n, v);
		return JSON.stringify(false);
	}`, name, value)
}

func (e *element) RemoveAttr(name string) error {
	return e.write(`(id, n) => {
		const el = document.getElementById(id);
		if (!el) return JSON.stringify(true);
		el.removeAttribute(n);
		return JSON.stringify(false);
	}`, name)
}

func (e *element) InnerHTML() (string, error) {
	return e.read(`(id) => {
		const el = document.getElementById(id);
		return JSON.stringify(el ? {value: el.innerHTML} : {missing: true});
	}`)
}

func (e *element) SetInnerHTML(html string) error {
	return e.write(`(id, v) => {
		const el = document.getElementById(id);
		if (!el) return JSON.stringify(true);
		el.innerHTML = v;
		return JSON.stringify(false);
	}`, html)
}

func (e *element) Text() (string, error) {
	return e.read(`(id) => {
		const el = document.getElementById(id);
		return JSON.stringify(el ? {value: el.textContent} : {missing: true});
	}`)
}

func (e *element) SetText(text string) error {
	return e.write(`(id, v) => {
		const el = document.getElementById(id);
		if (!el) return JSON.stringify(true);
		el.textContent = v;
		return JSON.stringify(false);
	}`, text)
}

// MergeStyle merges in Go with dom.MergeStyle so the page and the
// in-memory documents produce the same style attribute.
func (e *element) MergeStyle(css string) error {
	cur, _, err := e.Attr("style")
	if err != nil {
		return err
	}
	merged, changed, err := dom.MergeStyle(cur, css)
	if err != nil || !changed {
		return err
	}
	if merged == "" {
		return e.RemoveAttr("style")
	}
	return e.SetAttr("style", merged)
}

func (e *element) read(js string) (string, error) {
	var r attrResult
	if err := e.doc.eval(e.ctx, &r, js, e.id); err != nil {
		return "", err
	}
	if err := errIfMissing(e.id, r.Missing); err != nil {
		return "", err
	}
	return r.Value, nil
}

func (e *element) write(js string, args ...any) error {
	var missing bool
	if err := e.doc.eval(e.ctx, &missing, js, append([]any{e.id}, args...)...); err != nil {
		return err
	}
	return errIfMissing(e.id, missing)
}
