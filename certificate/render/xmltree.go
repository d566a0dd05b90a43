package render

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"regexp"
	"sort"
	"strings"
)

const (
	wmlNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	relNamespace = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	xmlNamespace = "http://www.w3.org/XML/1998/namespace"
)

type xmlNode struct {
	Name     xml.Name
	Attr     []xml.Attr
	Children []*xmlNode
	Text     string
	IsText   bool
}

var xmlHeaderPattern = regexp.MustCompile(`(?s)^\s*(<\?xml[^>]+\?>)`)

func parseXMLDocument(xmlText string) (*xmlNode, string, error) {
	header := ""
	if match := xmlHeaderPattern.FindStringSubmatch(xmlText); len(match) > 0 {
		header = match[1]
		xmlText = strings.TrimSpace(xmlText[len(match[0]):])
	}

	decoder := xml.NewDecoder(strings.NewReader(xmlText))
	var stack []*xmlNode
	var root *xmlNode

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, "", err
		}

		switch t := token.(type) {
		case xml.StartElement:
			node := &xmlNode{Name: t.Name, Attr: t.Attr}
			if len(stack) == 0 {
				if root != nil {
					return nil, "", errors.New("multiple root elements")
				}
				root = node
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			}
			stack = append(stack, node)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) == 0 || len(t) == 0 {
				continue
			}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, &xmlNode{IsText: true, Text: string(t)})
		}
	}

	if root == nil {
		return nil, "", errors.New("no root element")
	}
	return root, header, nil
}

// encodeXMLDocument writes root's children between the original root tags so
// the root element keeps its exact namespace declarations and attributes.
func encodeXMLDocument(header string, root *xmlNode, rootStart, rootEnd string) (string, error) {
	var buf bytes.Buffer
	if header != "" {
		buf.WriteString(header)
		if !strings.HasSuffix(header, "\n") {
			buf.WriteByte('\n')
		}
	}

	clone := cloneNode(root)
	normalizeXMLNSAttrs(clone)
	applyPrefixMap(clone, prefixMapFromRoot(root))

	required := requiredNamespaceMap(prefixesUsed(clone), root)
	buf.WriteString(ensureRootHasNamespaces(rootStart, required))

	encoder := xml.NewEncoder(&buf)
	for _, child := range clone.Children {
		if err := encodeXMLNode(encoder, child); err != nil {
			return "", err
		}
	}
	if err := encoder.Flush(); err != nil {
		return "", err
	}

	buf.WriteString(rootEnd)
	return buf.String(), nil
}

func encodeXMLNode(encoder *xml.Encoder, node *xmlNode) error {
	if node.IsText {
		return encoder.EncodeToken(xml.CharData([]byte(node.Text)))
	}
	start := xml.StartElement{Name: node.Name, Attr: node.Attr}
	if err := encoder.EncodeToken(start); err != nil {
		return err
	}
	for _, child := range node.Children {
		if err := encodeXMLNode(encoder, child); err != nil {
			return err
		}
	}
	return encoder.EncodeToken(start.End())
}

func walkXML(node *xmlNode, visit func(*xmlNode) bool) bool {
	if node == nil {
		return true
	}
	if !visit(node) {
		return false
	}
	for _, child := range node.Children {
		if !walkXML(child, visit) {
			return false
		}
	}
	return true
}

func isElement(node *xmlNode, local string) bool {
	if node == nil || node.IsText {
		return false
	}
	if node.Name.Local != local {
		return false
	}
	return node.Name.Space == "" || node.Name.Space == wmlNamespace
}

// paragraphTextNodes returns the w:t elements of p in document order,
// excluding those of paragraphs nested inside p (text boxes).
func paragraphTextNodes(p *xmlNode) []*xmlNode {
	var out []*xmlNode
	var visit func(n *xmlNode)
	visit = func(n *xmlNode) {
		for _, child := range n.Children {
			switch {
			case isElement(child, "p"):
				continue
			case isElement(child, "t"):
				out = append(out, child)
			default:
				visit(child)
			}
		}
	}
	visit(p)
	return out
}

func nodeText(node *xmlNode) string {
	if node.IsText {
		return node.Text
	}
	var builder strings.Builder
	for _, child := range node.Children {
		if child.IsText {
			builder.WriteString(child.Text)
		}
	}
	return builder.String()
}

func setNodeText(node *xmlNode, text string) {
	node.Children = node.Children[:0]
	if text == "" {
		return
	}
	node.Children = append(node.Children, &xmlNode{IsText: true, Text: text})
	if strings.TrimSpace(text) != text {
		preserveSpace(node)
	}
}

func preserveSpace(node *xmlNode) {
	for i, attr := range node.Attr {
		if attr.Name.Local == "space" && (attr.Name.Space == xmlNamespace || attr.Name.Space == "xml") {
			node.Attr[i].Value = "preserve"
			return
		}
	}
	node.Attr = append(node.Attr, xml.Attr{Name: xml.Name{Space: xmlNamespace, Local: "space"}, Value: "preserve"})
}

func cloneNode(node *xmlNode) *xmlNode {
	if node == nil {
		return nil
	}
	cloned := &xmlNode{
		Name:   node.Name,
		Attr:   append([]xml.Attr(nil), node.Attr...),
		Text:   node.Text,
		IsText: node.IsText,
	}
	if len(node.Children) > 0 {
		cloned.Children = make([]*xmlNode, 0, len(node.Children))
		for _, child := range node.Children {
			cloned.Children = append(cloned.Children, cloneNode(child))
		}
	}
	return cloned
}

// prefixMapFromRoot maps namespace URI to the prefix the root declares for it.
func prefixMapFromRoot(root *xmlNode) map[string]string {
	return invert(namespaceDeclsFromRoot(root))
}

func invert(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

func namespaceDeclsFromRoot(root *xmlNode) map[string]string {
	out := make(map[string]string)
	if root == nil {
		return out
	}
	for _, attr := range root.Attr {
		switch {
		case attr.Name.Space == "xmlns":
			out[attr.Name.Local] = attr.Value
		case attr.Name.Space == "" && attr.Name.Local == "xmlns":
			out[""] = attr.Value
		case attr.Name.Space == "" && strings.HasPrefix(attr.Name.Local, "xmlns:"):
			out[strings.TrimPrefix(attr.Name.Local, "xmlns:")] = attr.Value
		}
	}
	return out
}

func prefixesUsed(node *xmlNode) map[string]struct{} {
	out := make(map[string]struct{})
	walkXML(node, func(n *xmlNode) bool {
		if n.IsText {
			return true
		}
		if prefix := prefixFromName(n.Name.Local); prefix != "" {
			out[prefix] = struct{}{}
		}
		for _, attr := range n.Attr {
			if prefix := prefixFromName(attr.Name.Local); prefix != "" {
				out[prefix] = struct{}{}
			}
		}
		return true
	})
	return out
}

func prefixFromName(name string) string {
	if name == "" || name == "xmlns" || strings.HasPrefix(name, "xmlns:") {
		return ""
	}
	if idx := strings.IndexByte(name, ':'); idx > 0 {
		return name[:idx]
	}
	return ""
}

func requiredNamespaceMap(prefixes map[string]struct{}, root *xmlNode) map[string]string {
	declared := namespaceDeclsFromRoot(root)
	required := make(map[string]string)
	for prefix := range prefixes {
		if uri, ok := declared[prefix]; ok {
			required[prefix] = uri
			continue
		}
		if uri, ok := knownNamespaceURIs[prefix]; ok {
			required[prefix] = uri
		}
	}
	return required
}

var knownNamespaceURIs = map[string]string{
	"w":   wmlNamespace,
	"r":   relNamespace,
	"a":   "http://schemas.openxmlformats.org/drawingml/2006/main",
	"wp":  "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing",
	"pic": "http://schemas.openxmlformats.org/drawingml/2006/picture",
	"mc":  "http://schemas.openxmlformats.org/markup-compatibility/2006",
	"w14": "http://schemas.microsoft.com/office/word/2010/wordml",
	"w15": "http://schemas.microsoft.com/office/word/2012/wordml",
}

func ensureRootHasNamespaces(rootStart string, required map[string]string) string {
	if len(required) == 0 || rootStart == "" {
		return rootStart
	}
	existing := namespacesFromRootStart(rootStart)
	missing := make([]string, 0, len(required))
	for prefix, uri := range required {
		if current, ok := existing[prefix]; ok && current == uri {
			continue
		}
		if uri != "" && prefix != "" {
			missing = append(missing, prefix)
		}
	}
	if len(missing) == 0 {
		return rootStart
	}
	sort.Strings(missing)
	var builder strings.Builder
	for _, prefix := range missing {
		builder.WriteString(" xmlns:")
		builder.WriteString(prefix)
		builder.WriteString(`="`)
		builder.WriteString(required[prefix])
		builder.WriteString(`"`)
	}
	insert := builder.String()
	if idx := strings.LastIndex(rootStart, "/>"); idx != -1 && idx == len(rootStart)-2 {
		return rootStart[:idx] + insert + rootStart[idx:]
	}
	if idx := strings.LastIndex(rootStart, ">"); idx != -1 {
		return rootStart[:idx] + insert + rootStart[idx:]
	}
	return rootStart
}

var xmlnsAttrPattern = regexp.MustCompile(`\s+xmlns(?::([A-Za-z0-9._-]+))?="([^"]+)"`)

func namespacesFromRootStart(rootStart string) map[string]string {
	out := make(map[string]string)
	for _, match := range xmlnsAttrPattern.FindAllStringSubmatch(rootStart, -1) {
		out[match[1]] = match[2]
	}
	return out
}

func extractRootTags(xmlText string) (string, string, error) {
	startIdx, endIdx, name, err := findRootStartTag(xmlText)
	if err != nil {
		return "", "", err
	}
	rootStart := xmlText[startIdx : endIdx+1]
	endTag := "</" + name + ">"
	endPos := strings.LastIndex(xmlText, endTag)
	if endPos == -1 {
		return "", "", errors.New("root end tag not found")
	}
	return rootStart, xmlText[endPos : endPos+len(endTag)], nil
}

func findRootStartTag(xmlText string) (int, int, string, error) {
	i := 0
	for i < len(xmlText) {
		idx := strings.IndexByte(xmlText[i:], '<')
		if idx == -1 {
			return 0, 0, "", errors.New("root start tag not found")
		}
		i += idx
		switch {
		case strings.HasPrefix(xmlText[i:], "<?"):
			end := strings.Index(xmlText[i:], "?>")
			if end == -1 {
				return 0, 0, "", errors.New("xml header not terminated")
			}
			i += end + 2
			continue
		case strings.HasPrefix(xmlText[i:], "<!--"):
			end := strings.Index(xmlText[i:], "-->")
			if end == -1 {
				return 0, 0, "", errors.New("xml comment not terminated")
			}
			i += end + 3
			continue
		case strings.HasPrefix(xmlText[i:], "<!"):
			end := strings.IndexByte(xmlText[i:], '>')
			if end == -1 {
				return 0, 0, "", errors.New("doctype not terminated")
			}
			i += end + 1
			continue
		}
		break
	}
	if i >= len(xmlText) {
		return 0, 0, "", errors.New("root start tag not found")
	}
	start := i
	inQuote := byte(0)
	for i = start + 1; i < len(xmlText); i++ {
		c := xmlText[i]
		if inQuote != 0 {
			if c == inQuote {
				inQuote = 0
			}
			continue
		}
		if c == '"' || c == '\'' {
			inQuote = c
			continue
		}
		if c == '>' {
			name := rootTagName(xmlText[start+1 : i])
			if name == "" {
				return 0, 0, "", errors.New("root tag name missing")
			}
			return start, i, name, nil
		}
	}
	return 0, 0, "", errors.New("root start tag not terminated")
}

func rootTagName(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw[0] == '/' {
		return ""
	}
	if idx := strings.IndexAny(raw, " \t\r\n/"); idx != -1 {
		return raw[:idx]
	}
	return raw
}

func applyPrefixMap(node *xmlNode, prefixes map[string]string) {
	if node == nil || len(prefixes) == 0 {
		return
	}
	if !node.IsText {
		if prefix, ok := prefixes[node.Name.Space]; ok && prefix != "" {
			node.Name.Local = prefix + ":" + node.Name.Local
			node.Name.Space = ""
		}
		for i, attr := range node.Attr {
			if isXMLNSAttr(attr) {
				continue
			}
			if prefix, ok := prefixes[attr.Name.Space]; ok && prefix != "" {
				attr.Name.Local = prefix + ":" + attr.Name.Local
				attr.Name.Space = ""
				node.Attr[i] = attr
			}
		}
	}
	for _, child := range node.Children {
		applyPrefixMap(child, prefixes)
	}
}

func isXMLNSAttr(attr xml.Attr) bool {
	return attr.Name.Space == "xmlns" ||
		(attr.Name.Space == "" && attr.Name.Local == "xmlns") ||
		(attr.Name.Space == "" && strings.HasPrefix(attr.Name.Local, "xmlns:"))
}

func normalizeXMLNSAttrs(node *xmlNode) {
	if node == nil {
		return
	}
	if !node.IsText {
		for i, attr := range node.Attr {
			if attr.Name.Space != "xmlns" {
				continue
			}
			attr.Name.Space = ""
			if attr.Name.Local == "" {
				attr.Name.Local = "xmlns"
			} else {
				attr.Name.Local = "xmlns:" + attr.Name.Local
			}
			node.Attr[i] = attr
		}
	}
	for _, child := range node.Children {
		normalizeXMLNSAttrs(child)
	}
}
