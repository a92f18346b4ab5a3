package winrm

import (
	"encoding/xml"
	"regexp"
	"strconv"
	"strings"
)

const clixmlPrefix = "#< CLIXML"

// clixmlEscape matches the _xHHHH_ escapes PowerShell uses for control
// characters inside serialized strings.
var clixmlEscape = regexp.MustCompile(`_x([0-9A-Fa-f]{4})_`)

// cleanCLIXML extracts the error stream text from PowerShell's serialized
// stderr. Input that is not CLIXML, or that cannot be decoded, is returned
// unchanged.
func cleanCLIXML(stderr string) string {
	body, ok := strings.CutPrefix(strings.TrimLeft(stderr, "\r\n "), clixmlPrefix)
	if !ok {
		return stderr
	}

	dec := xml.NewDecoder(strings.NewReader(strings.TrimSpace(body)))
	var b strings.Builder
	inError := false

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			inError = t.Name.Local == "S" && streamAttr(t) == "Error"
		case xml.EndElement:
			inError = false
		case xml.CharData:
			if inError {
				b.Write(t)
			}
		}
	}

	if b.Len() == 0 {
		return stderr
	}

	text := clixmlEscape.ReplaceAllStringFunc(b.String(), func(m string) string {
		code, err := strconv.ParseUint(m[2:6], 16, 32)
		if err != nil {
			return m
		}
		return string(rune(code))
	})
	return strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
}

func streamAttr(el xml.StartElement) string {
	for _, a := range el.Attr {
		if a.Name.Local == "S" {
			return a.Value
		}
	}
	return ""
}
