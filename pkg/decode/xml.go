package decode

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// attributesKey holds element attributes in the generic document.
const attributesKey = "@attributes"

// parseXML converts an XML document into the same generic shape json.Unmarshal
// produces: the root element is dropped, elements with children become maps,
// repeated siblings become slices and text-only elements become strings.
func parseXML(body []byte) (map[string]any, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errors.New("no root element")
			}
			return nil, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			v, err := parseElement(dec, start)
			if err != nil {
				return nil, err
			}
			if m, ok := v.(map[string]any); ok {
				return m, nil
			}
			return map[string]any{}, nil
		}
	}
}

// parseElement consumes tokens up to the matching end element.
func parseElement(dec *xml.Decoder, start xml.StartElement) (any, error) {
	children := map[string]any{}
	var text strings.Builder

	if len(start.Attr) > 0 {
		attrs := make(map[string]any, len(start.Attr))
		for _, a := range start.Attr {
			attrs[a.Name.Local] = a.Value
		}
		children[attributesKey] = attrs
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			child, err := parseElement(dec, t)
			if err != nil {
				return nil, err
			}
			appendChild(children, t.Name.Local, child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if len(children) == 0 {
				return strings.TrimSpace(text.String()), nil
			}
			return children, nil
		}
	}
}

// appendChild turns a second occurrence of name into a slice.
func appendChild(children map[string]any, name string, child any) {
	existing, ok := children[name]
	if !ok {
		children[name] = child
		return
	}
	if list, ok := existing.([]any); ok {
		children[name] = append(list, child)
		return
	}
	children[name] = []any{existing, child}
}
