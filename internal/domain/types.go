package domain

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"
)

// Browser identifies a supported bookmark source application.
type Browser string

const (
	BrowserBrave    Browser = "brave"
	BrowserChrome   Browser = "chrome"
	BrowserChromium Browser = "chromium"
	BrowserEdge     Browser = "edge"
	BrowserFirefox  Browser = "firefox"
)

// KnownBrowsers lists every browser identity in a stable order.
var KnownBrowsers = []Browser{BrowserBrave, BrowserChrome, BrowserChromium, BrowserEdge, BrowserFirefox}

func (b Browser) String() string { return string(b) }

// ParseBrowser converts a user-supplied name into a Browser.
func ParseBrowser(s string) (Browser, error) {
	name := Browser(strings.ToLower(strings.TrimSpace(s)))
	for _, b := range KnownBrowsers {
		if b == name {
			return b, nil
		}
	}
	return "", fmt.Errorf("unknown browser %q", s)
}

// Platform identifies the host operating system.
type Platform string

const (
	PlatformLinux   Platform = "linux"
	PlatformDarwin  Platform = "darwin"
	PlatformWindows Platform = "windows"
)

func (p Platform) String() string { return string(p) }

// CurrentPlatform returns the platform the process runs on.
func CurrentPlatform() Platform { return Platform(runtime.GOOS) }

// Metadata keys set on documents.
const (
	MetadataBrowser = "browser"
	MetadataSource  = "source"
	MetadataSeqNum  = "seq_num"
)

var ErrInvalidPageContent = errors.New("page content must be a JSON object with name and url")

// Document is the unit flowing from loaders into the vector store.
type Document struct {
	PageContent string
	Metadata    map[string]any
}

// NewDocument builds a document, guaranteeing a non-nil metadata map.
func NewDocument(content string, metadata map[string]any) Document {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return Document{PageContent: content, Metadata: metadata}
}

// Validate checks that PageContent is a JSON object holding name and url.
func (d Document) Validate() error {
	if !gjson.Valid(d.PageContent) {
		return ErrInvalidPageContent
	}
	res := gjson.Parse(d.PageContent)
	if !res.IsObject() || !res.Get("name").Exists() || !res.Get("url").Exists() {
		return ErrInvalidPageContent
	}
	return nil
}

// AttachBrowser stamps doc with the browser it was loaded from.
// Existing metadata keys are kept.
func AttachBrowser(doc *Document, b Browser) {
	if doc.Metadata == nil {
		doc.Metadata = map[string]any{}
	}
	doc.Metadata[MetadataBrowser] = string(b)
}

// Bookmark is a single answer returned by the ask chain.
type Bookmark struct {
	Title  string `json:"title" validate:"required"`
	URL    string `json:"url" validate:"required,url"`
	Source string `json:"source"`
}

var validate = validator.New()

// Validate checks that the bookmark has a title and an absolute URL.
func (b Bookmark) Validate() error {
	return validate.Struct(b)
}

// Bookmarks is the structured output expected from the language model.
type Bookmarks struct {
	Bookmarks []Bookmark `json:"bookmarks" validate:"dive"`
}
