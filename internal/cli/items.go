package cli

import (
	"fmt"
	"mime"
	"path/filepath"
	"regexp"

	"github.com/goccy/go-json"

	"github.com/kroma-labs/courier-go/httpclient"
)

var (
	reMethod          = regexp.MustCompile(`^[a-zA-Z]+$`)
	reHeaderFieldName = regexp.MustCompile("^[-!#$%&'*+.^_|~a-zA-Z0-9]+$")
	reScheme          = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+-.]*://`)
)

type itemKind int

const (
	unknownItem itemKind = iota
	headerItem
	queryItem
	textFieldItem
	jsonFieldItem
	fileFieldItem
)

func (k itemKind) String() string {
	switch k {
	case headerItem:
		return "header"
	case queryItem:
		return "query"
	case textFieldItem:
		return "text"
	case jsonFieldItem:
		return "json"
	case fileFieldItem:
		return "file"
	default:
		return "unknown"
	}
}

// Item is one request item given on the command line.
//
//	Header:Value   request header
//	name==value    query parameter
//	field=text     text part
//	field:=json    JSON part
//	field@path     file part
type Item struct {
	Kind  itemKind
	Name  string
	Value string
}

// ParseItem splits s at its first separator and validates the result.
func ParseItem(s string) (Item, error) {
	item := splitItem(s)
	switch item.Kind {
	case unknownItem:
		return Item{}, fmt.Errorf("unknown request item: %s", s)
	case headerItem:
		if !reHeaderFieldName.MatchString(item.Name) {
			return Item{}, fmt.Errorf("invalid header field name: %q", item.Name)
		}
	case jsonFieldItem:
		if !json.Valid([]byte(item.Value)) {
			return Item{}, fmt.Errorf("invalid JSON at '%s': %s", item.Name, item.Value)
		}
	case fileFieldItem:
		if item.Value == "" {
			return Item{}, fmt.Errorf("missing file path for '%s'", item.Name)
		}
	}
	if item.Name == "" {
		return Item{}, fmt.Errorf("missing name in request item: %s", s)
	}
	return item, nil
}

// ParseItems parses every argument, stopping at the first invalid one.
func ParseItems(args []string) ([]Item, error) {
	items := make([]Item, 0, len(args))
	for _, arg := range args {
		item, err := ParseItem(arg)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func splitItem(s string) Item {
	for i := 0; i < len(s); i++ {
		next := byte(0)
		if i+1 < len(s) {
			next = s[i+1]
		}
		switch s[i] {
		case ':':
			if next == '=' {
				return Item{Kind: jsonFieldItem, Name: s[:i], Value: s[i+2:]}
			}
			return Item{Kind: headerItem, Name: s[:i], Value: s[i+1:]}
		case '=':
			if next == '=' {
				return Item{Kind: queryItem, Name: s[:i], Value: s[i+2:]}
			}
			return Item{Kind: textFieldItem, Name: s[:i], Value: s[i+1:]}
		case '@':
			return Item{Kind: fileFieldItem, Name: s[:i], Value: s[i+1:]}
		}
	}
	return Item{Kind: unknownItem}
}

// applyItems adds the items to rb in command line order. JSON parts are
// encoded with cs; text parts use the builder's charset.
func applyItems(rb *httpclient.RequestBuilder, items []Item, cs httpclient.Charset) error {
	for _, item := range items {
		switch item.Kind {
		case headerItem:
			rb.AddHeader(item.Name, item.Value)
		case queryItem:
			rb.Query(item.Name, item.Value)
		case textFieldItem:
			rb.FormField(item.Name, item.Value)
		case jsonFieldItem:
			part, err := httpclient.FormJSON(item.Name, item.Value, cs)
			if err != nil {
				return err
			}
			rb.Form(part)
		case fileFieldItem:
			rb.Form(filePart(item.Name, item.Value))
		}
	}
	return nil
}

func filePart(name, path string) httpclient.FormDataParameter {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return httpclient.FormFileType(name, ct, path)
	}
	return httpclient.FormFile(name, path)
}
