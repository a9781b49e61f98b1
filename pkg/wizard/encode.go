package wizard

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/goliatone/go-formflow/pkg/flow"
)

// ContentType returns the media type for format.
func ContentType(format OutputFormat) string {
	switch format {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain"
	default:
		return "application/json"
	}
}

// Encode serializes values in format. order lists field names in display
// order for the pretty format; names missing from it follow alphabetically.
func Encode(format OutputFormat, values flow.Values, order []string) ([]byte, error) {
	switch format {
	case OutputFormatFormURLEncoded:
		return []byte(encodeForm(values)), nil
	case OutputFormatPrettyText:
		return []byte(encodePretty(values, order)), nil
	case OutputFormatJSON, "":
		if values == nil {
			values = flow.Values{}
		}
		data, err := json.Marshal(values)
		if err != nil {
			return nil, fmt.Errorf("wizard: encode json: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func encodeForm(values flow.Values) string {
	form := url.Values{}
	for key, value := range values {
		switch v := value.(type) {
		case []any:
			for _, item := range v {
				form.Add(key+"[]", stringValue(item))
			}
		case []string:
			for _, item := range v {
				form.Add(key+"[]", item)
			}
		default:
			form.Set(key, stringValue(v))
		}
	}
	return form.Encode()
}

func encodePretty(values flow.Values, order []string) string {
	seen := make(map[string]bool, len(values))
	keys := make([]string, 0, len(values))
	for _, name := range order {
		if _, ok := values[name]; ok && !seen[name] {
			keys = append(keys, name)
			seen[name] = true
		}
	}
	var rest []string
	for name := range values {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	keys = append(keys, rest...)

	var b strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&b, "%s=%s\n", key, stringValue(values[key]))
	}
	return b.String()
}
