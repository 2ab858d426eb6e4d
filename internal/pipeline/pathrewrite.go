package pipeline

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// RewriteRelativeURLs turns relative image sources and stylesheet links
// into absolute file:// URLs under baseDir. The exporter loads documents
// from a temp file, so relative references would otherwise break.
// An empty baseDir returns the document unchanged.
//
// Only img[src] and link[rel=stylesheet][href] are touched. URLs with a
// scheme, absolute paths, anchors, and paths escaping baseDir are kept.
func RewriteRelativeURLs(htmlContent, baseDir string) (string, error) {
	if baseDir == "" {
		return htmlContent, nil
	}

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", err
	}

	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "img":
				rewriteAttr(n, "src", absBase)
			case n.Data == "link" && isStylesheet(n):
				rewriteAttr(n, "href", absBase)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	var buf strings.Builder
	if err := html.Render(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func isStylesheet(n *html.Node) bool {
	for _, a := range n.Attr {
		if a.Key == "rel" && strings.EqualFold(strings.TrimSpace(a.Val), "stylesheet") {
			return true
		}
	}
	return false
}

func rewriteAttr(n *html.Node, key, baseDir string) {
	for i, a := range n.Attr {
		if a.Key != key || !isRelativePath(a.Val) {
			continue
		}
		abs := filepath.Join(baseDir, filepath.FromSlash(a.Val))
		if !isPathUnderDir(abs, baseDir) {
			continue
		}
		n.Attr[i].Val = pathToFileURL(abs)
	}
}

// isRelativePath reports whether p is a relative filesystem reference.
func isRelativePath(p string) bool {
	if p == "" || strings.HasPrefix(p, "#") || strings.HasPrefix(p, "//") {
		return false
	}
	if u, err := url.Parse(p); err == nil && u.Scheme != "" {
		return false
	}
	return !filepath.IsAbs(p) && !strings.HasPrefix(p, "/")
}

func isPathUnderDir(absPath, dir string) bool {
	cleanDir := filepath.Clean(dir) + string(filepath.Separator)
	return strings.HasPrefix(filepath.Clean(absPath)+string(filepath.Separator), cleanDir)
}

func pathToFileURL(absPath string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(absPath)}
	return u.String()
}

// Attributes that make the browser fetch a URL.
var fetchAttrs = map[string]bool{
	"src": true, "href": true, "srcset": true, "poster": true, "data": true,
	"action": true, "formaction": true, "background": true,
}

// cssURL matches url(...) and @import "..." references in CSS.
var cssURL = regexp.MustCompile(`(?i)url\(\s*['"]?([^'")]+)|@import\s+['"]([^'"]+)`)

// LocalReferences lists the URLs in htmlContent that point at the local
// filesystem: attribute URLs, srcset candidates, inline style and <style>
// url() references. Scheme matching ignores case and embedded whitespace,
// as browsers do.
func LocalReferences(htmlContent string) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}

	var refs []string
	add := func(vals ...string) {
		for _, v := range vals {
			if isLocalURL(v) {
				refs = append(refs, strings.TrimSpace(v))
			}
		}
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			for _, a := range n.Attr {
				switch {
				case a.Key == "srcset":
					add(srcsetURLs(a.Val)...)
				case a.Key == "style":
					add(cssURLs(a.Val)...)
				case fetchAttrs[a.Key]:
					add(a.Val)
				}
			}
		case html.TextNode:
			if n.Parent != nil && n.Parent.Type == html.ElementNode && n.Parent.Data == "style" {
				add(cssURLs(n.Data)...)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return refs, nil
}

func srcsetURLs(v string) []string {
	var urls []string
	for _, candidate := range strings.Split(v, ",") {
		if fields := strings.Fields(candidate); len(fields) > 0 {
			urls = append(urls, fields[0])
		}
	}
	return urls
}

func cssURLs(css string) []string {
	var urls []string
	for _, m := range cssURL.FindAllStringSubmatch(css, -1) {
		if m[1] != "" {
			urls = append(urls, m[1])
		} else {
			urls = append(urls, m[2])
		}
	}
	return urls
}

// isLocalURL reports whether v uses the file or filesystem scheme.
func isLocalURL(v string) bool {
	v = strings.Map(func(r rune) rune {
		if r <= ' ' {
			return -1
		}
		return r
	}, v)
	lower := strings.ToLower(v)
	return strings.HasPrefix(lower, "file:") || strings.HasPrefix(lower, "filesystem:")
}
