package browsers

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// placesKeys is the key order of the page content produced from a history row.
// Consumers compare this output byte-for-byte.
var placesKeys = []struct{ out, in string }{
	{"id", "id"},
	{"url", "url"},
	{"dateAdded", "dateAdded"},
	{"lastModified", "lastModified"},
	{"source", "source"},
	{"name", "title"},
}

// PlacesPageContent renders a history row as
// {"id": .., "url": .., "dateAdded": .., "lastModified": .., "source": .., "name": ..}
// with title renamed to name.
func PlacesPageContent(row map[string]any) (string, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range placesKeys {
		if i > 0 {
			buf.WriteString(", ")
		}
		v, err := encodeValue(row[k.in])
		if err != nil {
			return "", fmt.Errorf("encode %s: %w", k.in, err)
		}
		name, _ := encodeValue(k.out)
		buf.Write(name)
		buf.WriteString(": ")
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.String(), nil
}

func encodeValue(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
