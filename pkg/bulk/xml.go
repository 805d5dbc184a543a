package bulk

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// jobNS is the Bulk API dataload namespace every jobInfo/batchInfo document
// is qualified with.
const jobNS = "http://www.force.com/2009/06/asyncapi/dataload"

const xmlDeclaration = `<?xml version="1.0" encoding="UTF-8"?>`

// jobDoc renders a namespaced jobInfo document with the fields in the given
// order. The Bulk API rejects documents whose elements are out of order, so
// callers are responsible for sequencing.
func jobDoc(fields []Field) []byte {
	var b bytes.Buffer
	b.WriteString(xmlDeclaration)
	b.WriteString(`<jobInfo xmlns="` + jobNS + `">`)
	for _, f := range fields {
		b.WriteString("<" + f.Name + ">")
		_ = xml.EscapeText(&b, []byte(f.Value))
		b.WriteString("</" + f.Name + ">")
	}
	b.WriteString("</jobInfo>")
	return b.Bytes()
}

// jobFields sequences the recognized jobInfo fields in the order the API
// requires (operation, object, externalIdFieldName, concurrencyMode,
// contentType), dropping empty ones, then appends extras in insertion order.
func jobFields(cfg JobConfig) []Field {
	fields := make([]Field, 0, 5+len(cfg.Extra))
	for _, f := range []Field{
		{Name: "operation", Value: string(cfg.Operation)},
		{Name: "object", Value: cfg.Object},
		{Name: "externalIdFieldName", Value: cfg.ExternalIDField},
		{Name: "concurrencyMode", Value: cfg.ConcurrencyMode},
		{Name: "contentType", Value: cfg.ContentType},
	} {
		if f.Value != "" {
			fields = append(fields, f)
		}
	}
	return append(fields, cfg.Extra...)
}

// stateDoc renders the single-field document used for job state transitions.
func stateDoc(state string) []byte {
	return jobDoc([]Field{{Name: "state", Value: state}})
}

// parseFields flattens a status or creation response into a field-name to
// value map, normalizing namespace-qualified tags to their local names.
// Only direct children of the root element are considered.
func parseFields(data []byte) (map[string]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	fields := make(map[string]string)

	depth := 0
	var name string
	var text strings.Builder

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bulk: parse response: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 2 {
				name = t.Name.Local
				text.Reset()
			}
		case xml.CharData:
			if depth == 2 {
				text.Write(t)
			}
		case xml.EndElement:
			if depth == 2 {
				fields[name] = text.String()
			}
			depth--
		}
	}
	return fields, nil
}

// parseResultIDs extracts the result-segment ids from a result-list
// response, preserving the order the server listed them in.
func parseResultIDs(data []byte) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var ids []string
	depth := 0
	var text strings.Builder

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bulk: parse result list: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 2 {
				text.Reset()
			}
		case xml.CharData:
			if depth == 2 {
				text.Write(t)
			}
		case xml.EndElement:
			if depth == 2 && t.Name.Local == "result" {
				ids = append(ids, text.String())
			}
			depth--
		}
	}
	return ids, nil
}
