package js

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/chrisuehlinger/vibedom/dom"
	"github.com/chrisuehlinger/vibedom/network"
)

// ScriptLoader fetches the source of an external script by absolute URL.
type ScriptLoader func(url string) (string, error)

type documentScript struct {
	id   string
	code string
	src  string
}

// SetScriptLoader sets the loader used for scripts with a src attribute.
// Without one those scripts are skipped.
func (r *Runtime) SetScriptLoader(loader ScriptLoader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scriptLoader = loader
}

// ExecuteScripts runs the document's classic scripts in tree order. Scripts
// with a non-JavaScript type are skipped. Errors are collected and execution
// continues with the next script, unless the runtime has been terminated.
func (r *Runtime) ExecuteScripts() []error {
	doc := r.Document()
	if doc == nil {
		return []error{ErrRuntimeClosed}
	}
	var scripts []documentScript
	collectScripts(doc.Get().AsNode(), &scripts)
	base := doc.Get().URL()
	doc.Release()

	r.mu.Lock()
	loader := r.scriptLoader
	r.mu.Unlock()

	var errs []error
	for _, s := range scripts {
		if s.src != "" {
			if loader == nil {
				continue
			}
			url, err := network.ResolveURL(base, s.src)
			if err == nil {
				s.id = url
				s.code, err = loader(url)
			}
			if err != nil {
				errs = append(errs, errors.Wrapf(err, "load script %s", s.src))
				continue
			}
		}
		if _, err := r.ExecuteScript(s.code, s.id); err != nil {
			errs = append(errs, err)
			if r.Terminated() != nil {
				break
			}
		}
	}
	r.logger.Debug("document scripts executed", zap.Int("scripts", len(scripts)), zap.Int("errors", len(errs)))
	return errs
}

func collectScripts(n *dom.Node, out *[]documentScript) {
	n.ForEachChild(func(c dom.Noder) bool {
		el, ok := c.(dom.Elem)
		if !ok {
			return true
		}
		if s, ok := scriptOf(el.AsElement()); ok {
			if s.code != "" || s.src != "" {
				*out = append(*out, s)
			}
			return true
		}
		collectScripts(c.AsNode(), out)
		return true
	})
}

func scriptOf(el *dom.Element) (documentScript, bool) {
	if el.LocalName() != "script" || el.NamespaceURI() != dom.HTMLNamespace {
		return documentScript{}, false
	}
	if typ, ok := el.GetAttribute("type"); ok {
		switch strings.ToLower(strings.TrimSpace(typ)) {
		case "", "text/javascript", "application/javascript":
		default:
			return documentScript{}, true
		}
	}
	if src, ok := el.GetAttribute("src"); ok {
		return documentScript{src: strings.TrimSpace(src)}, true
	}
	code := strings.TrimSpace(el.TextContent())
	if code == "" {
		return documentScript{}, true
	}
	id, ok := el.GetAttribute("id")
	if !ok || id == "" {
		id = "inline"
	}
	return documentScript{id: id, code: code}, true
}
